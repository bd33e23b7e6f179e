package deskguard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Service is the content-lifecycle engine. It authorizes every operation
// against the session, runs mutations as one Store transaction and keeps
// category and tag counters exact.
//
// Every method takes the acting *Session explicitly. Session failures are
// reported before any policy decision:
//
//	store := deskguard.NewMemoryStore()
//	svc := deskguard.NewService(store, deskguard.NewPolicy(deskguard.DefaultRegistry()))
//	article, err := svc.CreateArticle(ctx, session, deskguard.ArticleInput{
//	    Title:   "Resetting a password",
//	    Content: "...",
//	})
//	if err != nil {
//	    http.Error(w, err.Error(), deskguard.HTTPStatus(err))
//	}
type Service struct {
	store     Store
	policy    *Policy
	logger    zerolog.Logger
	clock     func() time.Time
	views     *ViewCounter
	txMonitor *mutationMonitor
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.clock = now
	}
}

// WithViewCounter sets the counter that receives read events. Without one,
// reads do not count views.
func WithViewCounter(v *ViewCounter) Option {
	return func(s *Service) {
		s.views = v
	}
}

// NewService creates a Service over store. A nil policy means DefaultRegistry.
func NewService(store Store, policy *Policy, opts ...Option) *Service {
	if policy == nil {
		policy = NewPolicy(DefaultRegistry())
	}
	s := &Service{
		store:     store,
		policy:    policy,
		logger:    zerolog.Nop(),
		clock:     time.Now,
		txMonitor: newMutationMonitor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the policy the service authorizes against.
func (s *Service) Policy() *Policy {
	return s.policy
}

// Close stops the view counter, waiting for buffered increments until ctx ends.
func (s *Service) Close(ctx context.Context) error {
	if s.views == nil {
		return nil
	}
	return s.views.Close(ctx)
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// mutate runs fn as one transaction. A unit that loses a slug race is rolled
// back and run again from scratch, so fn must not keep state between calls.
func (s *Service) mutate(ctx context.Context, op string, fn func(ctx context.Context, tx Store) error) error {
	start := time.Now()

	var err error
	for attempt := 1; ; attempt++ {
		err = s.store.WithinTx(ctx, fn)
		if !errors.Is(err, ErrSlugTaken) {
			break
		}
		if attempt >= maxSlugAttempts {
			err = NewError(ErrConflict, "could not allocate a unique slug").WithCause(err)
			break
		}
		s.logger.Debug().Str("op", op).Int("attempt", attempt).Msg("slug taken concurrently, retrying")
	}

	s.txMonitor.record(time.Since(start), err)

	switch {
	case err == nil:
		s.logger.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("mutation committed")
	case errors.Is(err, ErrInternal):
		s.logger.Error().Err(err).Str("op", op).Msg("mutation failed")
	default:
		s.logger.Debug().Err(err).Str("op", op).Msg("mutation rejected")
	}
	return err
}

// audit writes an audit row after the mutation committed. A failed write is
// logged and does not fail the mutation.
func (s *Service) audit(ctx context.Context, entry *AuditEntry) {
	row := entry.ToModel(GetAuditContext(ctx), s.now())
	if err := s.store.InsertAudit(ctx, row); err != nil {
		s.logger.Warn().Err(err).
			Str("action", row.Action).
			Str("article_id", row.ArticleID).
			Str("actor_id", row.ActorID).
			Msg("audit write failed")
	}
}

// GetAuditLog retrieves audit log entries, newest first.
func (s *Service) GetAuditLog(ctx context.Context, sess *Session, filter AuditLogFilter) ([]ArticleAuditLog, error) {
	if err := s.policy.Authorize(sess, ActionAuditRead); err != nil {
		return nil, err
	}
	logs, err := s.store.ListAudit(ctx, filter)
	if err != nil {
		return nil, internal("list audit log", err)
	}
	return logs, nil
}
