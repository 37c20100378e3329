package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/users"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/security"
)

// RegisterService handles the account opening transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// ActivityInitializer creates the empty activity record of a new account
// inside the registration transaction.
type ActivityInitializer interface {
	Initialize(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
// A nil Activity leaves the record to be created on first write.
type RegisterServiceParams struct {
	DB             db.TxRunner
	Activity       ActivityInitializer
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          db.TxRunner
	activity    ActivityInitializer
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:          params.DB,
		activity:    params.Activity,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Name:         req.Name,
			Email:        email,
			PasswordHash: passwordHash,
			Address:      req.Address,
			Phone:        req.Phone,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if s.activity != nil {
			if err := s.activity.Initialize(ctx, tx, user.ID, time.Now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create activity record")
			}
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
