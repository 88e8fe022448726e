package contact

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

const (
	submitRateLimit  = 5
	submitRateWindow = time.Hour
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// MessageInput carries a storefront contact form submission.
type MessageInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// MessageDTO is the staff-facing contact message projection.
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// Service exposes contact form intake plus the staff review queue.
type Service interface {
	Submit(ctx context.Context, remoteKey string, input MessageInput) (MessageDTO, error)
	List(ctx context.Context, unresolvedOnly bool, limit int) ([]MessageDTO, error)
	Resolve(ctx context.Context, id uuid.UUID) (MessageDTO, error)
}

// ServiceParams groups dependencies for the contact service.
type ServiceParams struct {
	Repo    Repository
	Limiter rateLimiter
}

type service struct {
	repo    Repository
	limiter rateLimiter
}

// NewService builds a contact service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "contact repo is required")
	}
	if params.Limiter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rate limiter is required")
	}
	return &service{repo: params.Repo, limiter: params.Limiter}, nil
}

// Submit stores a contact message, throttled per submitter.
func (s *service) Submit(ctx context.Context, remoteKey string, input MessageInput) (MessageDTO, error) {
	if err := validateInput(input); err != nil {
		return MessageDTO{}, err
	}
	if remoteKey != "" {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "contact:"+remoteKey, submitRateLimit, submitRateWindow)
		if err != nil {
			return MessageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check rate limit")
		}
		if !allowed {
			return MessageDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "too many messages, try again later")
		}
	}

	record := &models.ContactMessage{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Subject: strings.TrimSpace(input.Subject),
		Message: strings.TrimSpace(input.Message),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return MessageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact message")
	}
	return newMessageDTO(record), nil
}

func (s *service) List(ctx context.Context, unresolvedOnly bool, limit int) ([]MessageDTO, error) {
	records, err := s.repo.List(ctx, unresolvedOnly, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact messages")
	}
	msgs := make([]MessageDTO, 0, len(records))
	for i := range records {
		msgs = append(msgs, newMessageDTO(&records[i]))
	}
	return msgs, nil
}

// Resolve marks a message handled. Resolving twice is a no-op.
func (s *service) Resolve(ctx context.Context, id uuid.UUID) (MessageDTO, error) {
	if id == uuid.Nil {
		return MessageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "message id is required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MessageDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contact message not found")
		}
		return MessageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact message")
	}
	if !record.Resolved {
		record.Resolved = true
		if err := s.repo.Update(ctx, record); err != nil {
			return MessageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact message")
		}
	}
	return newMessageDTO(record), nil
}

func validateInput(input MessageInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	return nil
}

func newMessageDTO(record *models.ContactMessage) MessageDTO {
	return MessageDTO{
		ID:        record.ID,
		Name:      record.Name,
		Email:     record.Email,
		Subject:   record.Subject,
		Message:   record.Message,
		Resolved:  record.Resolved,
		CreatedAt: record.CreatedAt,
	}
}
