package controllers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"studybuddy/studybuddy/services/calendar"
	"studybuddy/studybuddy/sources/psql/dao"
	"studybuddy/studybuddy/sources/psql/models"
	"studybuddy/studybuddy/types"
	apitypes "studybuddy/studybuddy/utils/types"
	"studybuddy/studybuddy/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// PlannerController manages study tasks. cal may be nil; tasks are then
// saved with a warning instead of a calendar event.
type PlannerController struct {
	tasks *dao.StudyTaskDAO
	cal   calendar.EventWriter
}

func NewPlannerController(tasks *dao.StudyTaskDAO, cal calendar.EventWriter) *PlannerController {
	return &PlannerController{tasks: tasks, cal: cal}
}

func (c *PlannerController) AddTask(ctx context.Context, username string, req apitypes.AddTaskRequest) (*apitypes.AddTaskResult, error) {
	task, err := validateTask(username, req)
	if err != nil {
		return nil, err
	}
	if err := c.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	res := &apitypes.AddTaskResult{Task: *task}
	if c.cal == nil {
		res.Warning = "calendar is not configured; task saved without a calendar event"
		return res, nil
	}

	eventID, err := c.cal.InsertEvent(ctx, calendar.Event{
		Title: "Study: " + task.Subject,
		Date:  task.Date,
		Start: task.StartTime,
		End:   task.EndTime,
	})
	if err != nil {
		logging.ErrorLogger.Error("calendar insert failed", zap.String("task_id", task.ID.String()), zap.Error(err))
		res.Warning = "task saved but the calendar event could not be created: " + err.Error()
		return res, nil
	}
	if err := c.tasks.SetCalendarEventID(ctx, task.ID, eventID); err != nil {
		logging.ErrorLogger.Error("saving calendar event id failed", zap.String("task_id", task.ID.String()), zap.Error(err))
	}
	res.Task.CalendarEventID = eventID
	return res, nil
}

func validateTask(username string, req apitypes.AddTaskRequest) (*models.StudyTask, error) {
	var problems []string
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		problems = append(problems, "subject is required")
	}
	if !slices.Contains(models.Priorities, req.Priority) {
		problems = append(problems, fmt.Sprintf("priority must be one of %s", strings.Join(models.Priorities, ", ")))
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		problems = append(problems, "date must be YYYY-MM-DD")
	}
	start, serr := time.Parse(timeLayout, req.StartTime)
	end, eerr := time.Parse(timeLayout, req.EndTime)
	switch {
	case serr != nil || eerr != nil:
		problems = append(problems, "start_time and end_time must be HH:MM")
	case !end.After(start):
		problems = append(problems, "end_time must be after start_time")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidInput, strings.Join(problems, "; "))
	}

	return &models.StudyTask{
		Username:  username,
		Date:      req.Date,
		Subject:   subject,
		Priority:  req.Priority,
		StartTime: start.Format(timeLayout),
		EndTime:   end.Format(timeLayout),
	}, nil
}

func validDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", types.ErrInvalidInput)
	}
	return nil
}

// ListTasks returns tasks for one date, or all of them when date is empty.
func (c *PlannerController) ListTasks(ctx context.Context, username, date string) ([]models.StudyTask, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	tasks, err := c.tasks.ListTasks(ctx, username, date)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.StudyTask{}
	}
	return tasks, nil
}

func (c *PlannerController) SetDone(ctx context.Context, username string, id uuid.UUID, done bool) (*models.StudyTask, error) {
	ok, err := c.tasks.SetDone(ctx, username, id, done)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %s", types.ErrNotFound, id)
	}
	task, err := c.tasks.GetTask(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errors.New("task vanished after update")
	}
	return task, nil
}

func (c *PlannerController) DeleteTask(ctx context.Context, username string, id uuid.UUID) error {
	ok, err := c.tasks.DeleteTask(ctx, username, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: task %s", types.ErrNotFound, id)
	}
	return nil
}

// Breakdown counts completed and open tasks per priority.
func (c *PlannerController) Breakdown(ctx context.Context, username, date string) (*apitypes.Breakdown, error) {
	tasks, err := c.ListTasks(ctx, username, date)
	if err != nil {
		return nil, err
	}

	b := &apitypes.Breakdown{Priorities: map[string]apitypes.PriorityCounts{}}
	for _, t := range tasks {
		counts := b.Priorities[t.Priority]
		if t.Done {
			counts.Completed++
			b.Completed++
		} else {
			counts.NotCompleted++
		}
		b.Priorities[t.Priority] = counts
		b.Total++
	}
	if b.Total > 0 {
		b.Progress = float64(b.Completed) / float64(b.Total)
	}
	return b, nil
}
