// studybuddy/sources/psql/dao/dao.study_task.go
package dao

import (
	"context"
	"errors"

	"studybuddy/studybuddy/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudyTaskDAO scopes every query to a username so one user can never touch
// another's tasks.
type StudyTaskDAO struct {
	DB *gorm.DB
}

func NewStudyTaskDAO(db *gorm.DB) *StudyTaskDAO {
	return &StudyTaskDAO{DB: db}
}

func (dao *StudyTaskDAO) CreateTask(ctx context.Context, task *models.StudyTask) error {
	return dao.DB.WithContext(ctx).Create(task).Error
}

// GetTask returns nil, nil when the task does not exist for this user.
func (dao *StudyTaskDAO) GetTask(ctx context.Context, username string, id uuid.UUID) (*models.StudyTask, error) {
	var task models.StudyTask
	err := dao.DB.WithContext(ctx).Where("id = ? AND username = ?", id, username).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns the user's tasks ordered by date then start time. An
// empty date means all dates.
func (dao *StudyTaskDAO) ListTasks(ctx context.Context, username, date string) ([]models.StudyTask, error) {
	q := dao.DB.WithContext(ctx).Where("username = ?", username)
	if date != "" {
		q = q.Where("date = ?", date)
	}
	var tasks []models.StudyTask
	if err := q.Order("date asc").Order("start_time asc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// SetDone reports false when no task matched.
func (dao *StudyTaskDAO) SetDone(ctx context.Context, username string, id uuid.UUID, done bool) (bool, error) {
	res := dao.DB.WithContext(ctx).Model(&models.StudyTask{}).
		Where("id = ? AND username = ?", id, username).
		Update("done", done)
	return res.RowsAffected > 0, res.Error
}

func (dao *StudyTaskDAO) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return dao.DB.WithContext(ctx).Model(&models.StudyTask{}).
		Where("id = ?", id).
		Update("calendar_event_id", eventID).Error
}

// DeleteTask reports false when no task matched.
func (dao *StudyTaskDAO) DeleteTask(ctx context.Context, username string, id uuid.UUID) (bool, error) {
	res := dao.DB.WithContext(ctx).Where("id = ? AND username = ?", id, username).Delete(&models.StudyTask{})
	return res.RowsAffected > 0, res.Error
}
