// studybuddy/utils/types/planner.go
package types

import "studybuddy/studybuddy/sources/psql/models"

type AddTaskRequest struct {
	Date      string `json:"date"`
	Subject   string `json:"subject"`
	Priority  string `json:"priority"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AddTaskResult carries a warning when the task was saved but the calendar
// event could not be created.
type AddTaskResult struct {
	Task    models.StudyTask `json:"task"`
	Warning string           `json:"warning,omitempty"`
}

type SetDoneRequest struct {
	Done *bool `json:"done"`
}

type PriorityCounts struct {
	Completed    int `json:"completed"`
	NotCompleted int `json:"not_completed"`
}

// Breakdown omits priorities that have no tasks.
type Breakdown struct {
	Priorities map[string]PriorityCounts `json:"priorities"`
	Total      int                       `json:"total"`
	Completed  int                       `json:"completed"`
	Progress   float64                   `json:"progress"`
}
