package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "ACTIVE"
	SchedulePaused    ScheduleStatus = "PAUSED"
	ScheduleCompleted ScheduleStatus = "COMPLETED"
	ScheduleFailed    ScheduleStatus = "FAILED"
)

// WorkflowSchedule binds a cron trigger to one workflow definition.
// NextRunAt, LastRunAt and RunsCount are mutated only by the scheduler.
type WorkflowSchedule struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	WorkflowID uuid.UUID `gorm:"type:uuid;index;not null"`
	OwnerID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Name       string    `gorm:"type:varchar(200);not null"`

	CronExpression string         `gorm:"type:varchar(100);not null"`
	Timezone       string         `gorm:"type:varchar(64)"`
	Status         ScheduleStatus `gorm:"type:varchar(20);index;default:'ACTIVE'"`

	InputVariables datatypes.JSONMap `gorm:"type:jsonb"`
	MaxRuns        *int
	RunsCount      int `gorm:"default:0"`

	NextRunAt *time.Time `gorm:"index"`
	LastRunAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWorkflowSchedule(workflowID, ownerID uuid.UUID, name, expr, tz string) *WorkflowSchedule {
	now := time.Now()
	return &WorkflowSchedule{
		ID:             uuid.New(),
		WorkflowID:     workflowID,
		OwnerID:        ownerID,
		Name:           name,
		CronExpression: expr,
		Timezone:       tz,
		Status:         ScheduleActive,
		InputVariables: datatypes.JSONMap{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// RunsExhausted reports whether the schedule reached its run limit.
func (s *WorkflowSchedule) RunsExhausted() bool {
	return s.MaxRuns != nil && s.RunsCount >= *s.MaxRuns
}
