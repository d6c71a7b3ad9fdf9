// studybuddy/sources/psql/models/study_task.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Priorities in display order.
var Priorities = []string{PriorityHigh, PriorityMedium, PriorityLow}

// StudyTask is one planned study block. Date is YYYY-MM-DD and the times are
// HH:MM so both sort correctly as text.
type StudyTask struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username        string    `json:"-" gorm:"type:varchar(64);not null;index:idx_task_user_date"`
	Date            string    `json:"date" gorm:"type:varchar(10);not null;index:idx_task_user_date"`
	Subject         string    `json:"subject" gorm:"type:varchar(255);not null"`
	Priority        string    `json:"priority" gorm:"type:varchar(10);not null"`
	StartTime       string    `json:"start_time" gorm:"type:varchar(5);not null"`
	EndTime         string    `json:"end_time" gorm:"type:varchar(5);not null"`
	Done            bool      `json:"done" gorm:"not null;default:false"`
	CalendarEventID string    `json:"calendar_event_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (StudyTask) TableName() string {
	return "study_tasks"
}

// BeforeCreate assigns the id in Go so sqlite and postgres behave the same.
func (t *StudyTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
