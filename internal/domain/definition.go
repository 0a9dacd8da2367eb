package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type StepType string

const (
	StepTypeText   StepType = "text"
	StepTypeImage  StepType = "image"
	StepTypeVideo  StepType = "video"
	StepTypeCode   StepType = "code"
	StepTypeSocial StepType = "social"
)

// StepTypes lists every dispatchable step type. Registries iterate this to
// guarantee exhaustive registration.
var StepTypes = []StepType{StepTypeText, StepTypeImage, StepTypeVideo, StepTypeCode, StepTypeSocial}

func (t StepType) Valid() bool {
	switch t {
	case StepTypeText, StepTypeImage, StepTypeVideo, StepTypeCode, StepTypeSocial:
		return true
	}
	return false
}

// Step is one typed unit of work inside a definition. PromptTemplate may
// contain {name} placeholders resolved against the execution context.
type Step struct {
	StepID         string         `json:"step_id"`
	Type           StepType       `json:"type"`
	Provider       string         `json:"provider"`
	Model          string         `json:"model"`
	PromptTemplate string         `json:"prompt_template"`
	DependsOn      []string       `json:"depends_on,omitempty"`
	Settings       map[string]any `json:"settings,omitempty"`
	Order          int            `json:"order"`
}

// ScheduleConfig is the optional cron config attached to a definition.
type ScheduleConfig struct {
	CronExpression string `json:"cron_expression"`
	Timezone       string `json:"timezone"`
}

type WorkflowDefinition struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Description string
	Category    string                     `gorm:"type:varchar(100);index"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Steps       datatypes.JSONSlice[Step]   `gorm:"type:jsonb"`
	Variables   datatypes.JSONMap           `gorm:"type:jsonb"`
	IsTemplate  bool                        `gorm:"index"`
	Schedule    *ScheduleConfig             `gorm:"type:jsonb;serializer:json"`

	ExecutionsCount int64 `gorm:"default:0"`
	LastExecutionAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWorkflowDefinition(ownerID uuid.UUID, name string) *WorkflowDefinition {
	now := time.Now()
	return &WorkflowDefinition{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Variables: datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StepByID returns the step with the given id, or nil.
func (d *WorkflowDefinition) StepByID(id string) *Step {
	for i := range d.Steps {
		if d.Steps[i].StepID == id {
			return &d.Steps[i]
		}
	}
	return nil
}

// Clone produces a deep enough copy for duplicate/instantiate operations:
// a fresh id, the caller as owner, and reset execution bookkeeping.
func (d *WorkflowDefinition) Clone(ownerID uuid.UUID, name string) *WorkflowDefinition {
	copied := NewWorkflowDefinition(ownerID, name)
	copied.Description = d.Description
	copied.Category = d.Category
	copied.Tags = append(datatypes.JSONSlice[string]{}, d.Tags...)
	copied.Steps = append(datatypes.JSONSlice[Step]{}, d.Steps...)
	copied.Variables = datatypes.JSONMap{}
	for k, v := range d.Variables {
		copied.Variables[k] = v
	}
	if d.Schedule != nil {
		sc := *d.Schedule
		copied.Schedule = &sc
	}
	return copied
}
