package dao

import (
	"context"
	"testing"

	"studybuddy/studybuddy/sources/psql"
	"studybuddy/studybuddy/sources/psql/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func setupDAO(t *testing.T) *StudyTaskDAO {
	t.Helper()
	db, err := psql.Open(context.Background(), sqlite.Open(":memory:"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewStudyTaskDAO(db.DB)
}

func task(user, date, start, subject string) *models.StudyTask {
	return &models.StudyTask{
		Username: user, Date: date, Subject: subject,
		Priority: models.PriorityHigh, StartTime: start, EndTime: "23:00",
	}
}

func TestStudyTaskDAO_CreateAndList(t *testing.T) {
	ctx := context.Background()
	dao := setupDAO(t)

	require.NoError(t, dao.CreateTask(ctx, task("alice", "2024-03-06", "08:00", "Chem")))
	require.NoError(t, dao.CreateTask(ctx, task("alice", "2024-03-05", "14:00", "Math")))
	require.NoError(t, dao.CreateTask(ctx, task("alice", "2024-03-05", "09:00", "Physics")))
	require.NoError(t, dao.CreateTask(ctx, task("bob", "2024-03-05", "09:00", "Art")))

	all, err := dao.ListTasks(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Physics", "Math", "Chem"}, []string{all[0].Subject, all[1].Subject, all[2].Subject})
	assert.NotEqual(t, uuid.Nil, all[0].ID)

	day, err := dao.ListTasks(ctx, "alice", "2024-03-05")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	none, err := dao.ListTasks(ctx, "carol", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStudyTaskDAO_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	dao := setupDAO(t)
	mine := task("alice", "2024-03-05", "09:00", "Physics")
	require.NoError(t, dao.CreateTask(ctx, mine))

	got, err := dao.GetTask(ctx, "bob", mine.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := dao.SetDone(ctx, "bob", mine.ID, true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dao.DeleteTask(ctx, "bob", mine.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = dao.GetTask(ctx, "alice", mine.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Done)
}

func TestStudyTaskDAO_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	dao := setupDAO(t)
	tk := task("alice", "2024-03-05", "09:00", "Physics")
	require.NoError(t, dao.CreateTask(ctx, tk))

	ok, err := dao.SetDone(ctx, "alice", tk.ID, true)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, dao.SetCalendarEventID(ctx, tk.ID, "evt-1"))

	got, err := dao.GetTask(ctx, "alice", tk.ID)
	require.NoError(t, err)
	assert.True(t, got.Done)
	assert.Equal(t, "evt-1", got.CalendarEventID)

	ok, err = dao.SetDone(ctx, "alice", tk.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dao.DeleteTask(ctx, "alice", tk.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = dao.GetTask(ctx, "alice", tk.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
