package service

import (
	"context"

	"go-loom/internal/core/ports"
	"go-loom/internal/domain"
	"go-loom/internal/validator"

	"github.com/google/uuid"
)

// WorkflowService owns the definition and template surface. Every write is
// gated by the validator; nothing failing validation is ever persisted.
// Reads and writes are scoped to the requesting user; a foreign definition
// is indistinguishable from a missing one.
type WorkflowService interface {
	Create(ctx context.Context, ownerID uuid.UUID, def *domain.WorkflowDefinition) error
	Get(ctx context.Context, id, userID uuid.UUID) (*domain.WorkflowDefinition, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowDefinition, error)
	Update(ctx context.Context, userID uuid.UUID, def *domain.WorkflowDefinition) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Duplicate(ctx context.Context, id, userID uuid.UUID, name string) (*domain.WorkflowDefinition, error)

	ListTemplates(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowDefinition, error)
	Instantiate(ctx context.Context, templateID, userID uuid.UUID, name string) (*domain.WorkflowDefinition, error)

	Validate(def *domain.WorkflowDefinition) domain.ValidationResult
}

type workflowService struct {
	definitions ports.DefinitionRepository
	validate    *validator.Validator
}

func NewWorkflowService(definitions ports.DefinitionRepository, validate *validator.Validator) WorkflowService {
	return &workflowService{definitions: definitions, validate: validate}
}

func (s *workflowService) Create(ctx context.Context, ownerID uuid.UUID, def *domain.WorkflowDefinition) error {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	def.OwnerID = ownerID
	if result := s.validate.Validate(def); !result.Valid {
		return result.Err()
	}
	return s.definitions.Create(ctx, def)
}

func (s *workflowService) Get(ctx context.Context, id, userID uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.owned(ctx, id, userID)
}

func (s *workflowService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowDefinition, error) {
	return s.definitions.List(ctx, ownerID, false)
}

func (s *workflowService) Update(ctx context.Context, userID uuid.UUID, def *domain.WorkflowDefinition) error {
	existing, err := s.owned(ctx, def.ID, userID)
	if err != nil {
		return err
	}
	def.OwnerID = existing.OwnerID
	def.CreatedAt = existing.CreatedAt
	def.ExecutionsCount = existing.ExecutionsCount
	def.LastExecutionAt = existing.LastExecutionAt
	if result := s.validate.Validate(def); !result.Valid {
		return result.Err()
	}
	return s.definitions.Update(ctx, def)
}

func (s *workflowService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	return s.definitions.Delete(ctx, id)
}

// Duplicate copies one of the user's own definitions under a new name.
func (s *workflowService) Duplicate(ctx context.Context, id, userID uuid.UUID, name string) (*domain.WorkflowDefinition, error) {
	src, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = src.Name + " (copy)"
	}
	copied := src.Clone(userID, name)
	if err := s.definitions.Create(ctx, copied); err != nil {
		return nil, err
	}
	return copied, nil
}

func (s *workflowService) ListTemplates(ctx context.Context, ownerID uuid.UUID) ([]domain.WorkflowDefinition, error) {
	return s.definitions.List(ctx, ownerID, true)
}

// Instantiate clones a template into a regular definition owned by the
// caller.
func (s *workflowService) Instantiate(ctx context.Context, templateID, userID uuid.UUID, name string) (*domain.WorkflowDefinition, error) {
	tmpl, err := s.definitions.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsTemplate {
		return nil, domain.ErrNotFound
	}
	if name == "" {
		name = tmpl.Name
	}
	def := tmpl.Clone(userID, name)
	def.IsTemplate = false
	if err := s.definitions.Create(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *workflowService) Validate(def *domain.WorkflowDefinition) domain.ValidationResult {
	return s.validate.Validate(def)
}

func (s *workflowService) owned(ctx context.Context, id, userID uuid.UUID) (*domain.WorkflowDefinition, error) {
	def, err := s.definitions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if def.OwnerID != userID {
		return nil, domain.ErrNotFound
	}
	return def, nil
}
