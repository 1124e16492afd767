package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/domain/policy"
	repo "github.com/oksasatya/course-enrollment/internal/domain/repository"
	"github.com/oksasatya/course-enrollment/pkg/helpers"
)

// IdentityCache keeps resolved principals between requests.
type IdentityCache interface {
	Get(ctx context.Context, userID string) (policy.Principal, bool, error)
	Set(ctx context.Context, p policy.Principal, ttl time.Duration) error
}

// IdentityService turns an access token into a Principal. Tokens that fail verification
// and users unknown to the identity store resolve to Anonymous.
type IdentityService struct {
	JWT      *helpers.JWTManager
	Users    repo.UserRepository
	Cache    IdentityCache
	CacheTTL time.Duration
	Logger   *logrus.Logger
}

func NewIdentityService(jwt *helpers.JWTManager, users repo.UserRepository, cache IdentityCache, ttl time.Duration, logger *logrus.Logger) *IdentityService {
	return &IdentityService{JWT: jwt, Users: users, Cache: cache, CacheTTL: ttl, Logger: resolveLogger(logger)}
}

// Resolve returns Anonymous with ErrInvalidToken for a bad token so callers can tell
// it apart from a missing one. Storage failures come back as *StorageError.
func (s *IdentityService) Resolve(ctx context.Context, token string) (policy.Principal, error) {
	if token == "" {
		return policy.Anonymous(), nil
	}
	claims, err := s.JWT.ParseAccessToken(token)
	if err != nil {
		s.Logger.WithError(err).Debug("access token rejected")
		return policy.Anonymous(), ErrInvalidToken
	}
	return s.ResolveUser(ctx, claims.UserID)
}

// ResolveUser looks the user up, going through the cache when one is configured.
func (s *IdentityService) ResolveUser(ctx context.Context, userID string) (policy.Principal, error) {
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, userID)
		if err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("identity cache read failed")
		} else if ok {
			return p, nil
		}
	}

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return policy.Anonymous(), nil
		}
		s.Logger.WithError(err).WithField("user_id", userID).Error("identity lookup failed")
		return policy.Anonymous(), &StorageError{Op: "get user", Err: err}
	}
	if !u.Role.Valid() {
		s.Logger.WithFields(logrus.Fields{"user_id": userID, "role": string(u.Role)}).Warn("user has unknown role")
		return policy.Anonymous(), nil
	}

	p := policy.Principal{UserID: u.ID, Role: u.Role}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, p, s.CacheTTL); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("identity cache write failed")
		}
	}
	return p, nil
}
