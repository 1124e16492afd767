package repository

import (
	"context"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
)

// UserRepository reads identity-provider accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
