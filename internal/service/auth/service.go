package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/config"
	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
	"github.com/jwalitptl/carebook/internal/service/audit"
	apperrors "github.com/jwalitptl/carebook/pkg/errors"
	"github.com/jwalitptl/carebook/pkg/metrics"
	"github.com/jwalitptl/carebook/pkg/security"
	"github.com/jwalitptl/carebook/pkg/validator"
)

// Service is the identity store: patient registration and credential checks.
// There is no update or delete.
type Service struct {
	users    repository.UserRepository
	hasher   security.PasswordHasher
	admin    config.AdminConfig
	validate validator.Validator
	auditor  *audit.Service
	metrics  *metrics.Metrics
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, admin config.AdminConfig,
	auditor *audit.Service, m *metrics.Metrics) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		admin:    admin,
		validate: validator.New(),
		auditor:  auditor,
		metrics:  m,
	}
}

// Register stores a new patient. A failed attempt leaves the store unchanged.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if err := s.validate.Validate(req); err != nil {
		s.metrics.Registrations.WithLabelValues("missing_field").Inc()
		return nil, apperrors.NewMissingField(apperrors.ErrMissingField.Message, err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         model.RolePatient,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.Registrations.WithLabelValues("duplicate").Inc()
			s.auditor.Log(ctx, nil, "register", "user", 0, &audit.LogOptions{
				Outcome:  string(apperrors.KindDuplicateEmail),
				Metadata: map[string]interface{}{"email": req.Email},
			})
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	s.metrics.Registrations.WithLabelValues("success").Inc()
	s.auditor.Log(ctx, &model.Session{Email: user.Email, Name: user.Name, Role: user.Role}, "register", "user", user.ID, nil)
	return user, nil
}

// Authenticate checks credentials. The reserved administrator pair always
// succeeds without consulting the store.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Session, error) {
	if s.isAdmin(email, password) {
		session := &model.Session{Email: s.admin.Email, Name: s.admin.Name, Role: model.RoleAdmin}
		s.metrics.Logins.WithLabelValues(model.RoleAdmin.String(), "success").Inc()
		s.auditor.Log(ctx, session, "login", "session", 0, nil)
		return session, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Ctx(ctx).Error().Err(err).Msg("failed to look up user")
		}
		return nil, s.loginFailed(ctx, email)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, s.loginFailed(ctx, email)
	}

	session := &model.Session{Email: user.Email, Name: user.Name, Role: user.Role}
	s.metrics.Logins.WithLabelValues(user.Role.String(), "success").Inc()
	s.auditor.Log(ctx, session, "login", "session", user.ID, nil)
	return session, nil
}

func (s *Service) isAdmin(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.admin.Email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return emailOK && passOK
}

func (s *Service) loginFailed(ctx context.Context, email string) error {
	s.metrics.Logins.WithLabelValues("unknown", "invalid_credentials").Inc()
	s.auditor.Log(ctx, nil, "login", "session", 0, &audit.LogOptions{
		Outcome:  string(apperrors.KindInvalidCredentials),
		Metadata: map[string]interface{}{"email": email},
	})
	return apperrors.ErrInvalidCredentials
}
