package service

import (
	"context"

	"github.com/Veein-web/AI-Background-Remover/internal/models"
)

// AccountStore is satisfied by repository.UserRepository.
type AccountStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	FindOrCreateByEmail(ctx context.Context, user models.User) (models.User, bool, error)
	Debit(ctx context.Context, id string, cost int) (int, error)
	Balance(ctx context.Context, id string) (int, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	Touch(ctx context.Context, id string) error
	DeleteByID(ctx context.Context, id string) error
}

type ImageStore interface {
	Create(ctx context.Context, image models.Image) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Image, error)
}
