package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/metrics"
)

const (
	opMerge    = "merge"
	opSyncCart = "sync_cart"
)

// Service is the account side of the activity lifecycle.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Record, error)
	Merge(ctx context.Context, userID uuid.UUID, input MergeInput) (*MergeResult, error)
	SyncCart(ctx context.Context, userID uuid.UUID, cart []domain.CartLine) (domain.Record, error)
}

// MergeInput is a guest session handed over at login.
type MergeInput struct {
	SessionID string
	Session   domain.Record
}

// MergeResult is the stored account record after a merge request.
type MergeResult struct {
	Record   domain.Record
	Stats    domain.MergeStats
	Replayed bool
}

type userLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ServiceParams bundles the dependencies required to build an activity service.
type ServiceParams struct {
	Repo    Repository
	Users   userLookup
	Logger  *logger.Logger
	Metrics *metrics.ActivityMetrics
	Config  config.ActivityConfig
	Now     func() time.Time
}

type service struct {
	repo     Repository
	users    userLookup
	logg     *logger.Logger
	metrics  *metrics.ActivityMetrics
	attempts int
	history  int
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("activity repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	attempts := params.Config.MergeRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	history := params.Config.MergeHistorySize
	if history < 1 {
		history = 1
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		logg:     logg,
		metrics:  params.Metrics,
		attempts: attempts,
		history:  history,
		now:      func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (domain.Record, error) {
	if err := s.requireAccount(ctx, userID); err != nil {
		return domain.Record{}, err
	}
	row, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return domain.Empty(s.now()), nil
	}
	if err != nil {
		return domain.Record{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load activity")
	}
	return row.Record(), nil
}

func (s *service) Merge(ctx context.Context, userID uuid.UUID, input MergeInput) (*MergeResult, error) {
	started := time.Now()
	result, outcome, err := s.merge(ctx, userID, input)
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	s.metrics.Observe(opMerge, outcome, time.Since(started))
	return result, err
}

func (s *service) merge(ctx context.Context, userID uuid.UUID, input MergeInput) (*MergeResult, string, error) {
	if userID == uuid.Nil {
		return nil, "", errUnauthenticated()
	}
	if err := input.Session.Validate(); err != nil {
		return nil, "", err
	}
	if err := s.requireAccount(ctx, userID); err != nil {
		return nil, "", err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"session_id": input.SessionID,
	})

	if input.Session.IsEmpty() {
		rec, err := s.Get(ctx, userID)
		if err != nil {
			return nil, "", err
		}
		s.logg.Info(ctx, "activity.merge.noop")
		return &MergeResult{Record: rec, Stats: domain.MergeStats{Noop: true}}, metrics.OutcomeNoop, nil
	}

	fingerprint := domain.Fingerprint(input.SessionID, input.Session)

	for attempt := 1; attempt <= s.attempts; attempt++ {
		row, err := s.repo.Get(ctx, userID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load activity")
		}

		if row != nil && row.HasMerged(fingerprint) {
			s.logg.Info(ctx, "activity.merge.replayed")
			return &MergeResult{Record: row.Record(), Replayed: true}, metrics.OutcomeReplayed, nil
		}

		var account *domain.Record
		if row != nil {
			rec := row.Record()
			account = &rec
		}
		merged, stats := domain.Merge(account, input.Session, s.now())

		if row == nil {
			row = NewRow(userID, merged)
			row.RememberMerge(fingerprint, s.history)
			err = s.repo.Create(ctx, row)
		} else {
			row.Apply(merged)
			row.RememberMerge(fingerprint, s.history)
			err = s.repo.Update(ctx, row)
		}

		if errors.Is(err, ErrVersionConflict) {
			s.metrics.IncConflict(opMerge)
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "activity.merge.conflict")
			continue
		}
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store merged activity")
		}

		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"lines_combined": stats.LinesCombined,
			"lines_added":    stats.LinesAdded,
			"views_added":    stats.ViewsAdded,
			"searches_added": stats.SearchesAdded,
			"version":        row.Version,
		}), "activity.merge.applied")
		return &MergeResult{Record: row.Record(), Stats: stats}, metrics.OutcomeApplied, nil
	}

	return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "activity was modified concurrently, retry the merge")
}

func (s *service) SyncCart(ctx context.Context, userID uuid.UUID, cart []domain.CartLine) (domain.Record, error) {
	started := time.Now()
	rec, err := s.syncCart(ctx, userID, cart)
	outcome := metrics.OutcomeApplied
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	s.metrics.Observe(opSyncCart, outcome, time.Since(started))
	return rec, err
}

func (s *service) syncCart(ctx context.Context, userID uuid.UUID, cart []domain.CartLine) (domain.Record, error) {
	if userID == uuid.Nil {
		return domain.Record{}, errUnauthenticated()
	}
	if err := domain.ValidateCart(cart); err != nil {
		return domain.Record{}, err
	}
	if err := s.requireAccount(ctx, userID); err != nil {
		return domain.Record{}, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		row, err := s.repo.Get(ctx, userID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return domain.Record{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load activity")
		}

		var rec domain.Record
		if row != nil {
			rec = row.Record()
		} else {
			rec = domain.Empty(s.now())
		}
		rec.ReplaceCart(cart, s.now())

		if row == nil {
			row = NewRow(userID, rec)
			err = s.repo.Create(ctx, row)
		} else {
			row.Apply(rec)
			err = s.repo.Update(ctx, row)
		}

		if errors.Is(err, ErrVersionConflict) {
			s.metrics.IncConflict(opSyncCart)
			continue
		}
		if err != nil {
			return domain.Record{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store cart")
		}
		return row.Record(), nil
	}

	return domain.Record{}, pkgerrors.New(pkgerrors.CodeConflict, "activity was modified concurrently, retry the cart update")
}

func (s *service) requireAccount(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return errUnauthenticated()
	}
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return nil
}

func errUnauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
}
