package roll

import (
	"context"
	"time"

	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
	"github.com/google/uuid"
)

// Kind is the result of a roll attempt
type Kind int

const (
	KindRolled Kind = iota
	KindAlreadyRolled
)

func (k Kind) String() string {
	if k == KindAlreadyRolled {
		return "already_rolled"
	}
	return "rolled"
}

// Outcome describes what a call to AttemptRoll decided
type Outcome struct {
	Kind Kind

	// Set when Kind is KindRolled
	Value        int // True draw, as stored
	DisplayValue int // What the user is shown; differs from Value on joke dates
	Category     Category
	Record       *entities.RollRecord

	// Set when Kind is KindAlreadyRolled
	NextEligible time.Time
	Attempt      *entities.DuplicateAttempt
}

// epoch stands in for the last roll of a user who never rolled
var epoch = time.Unix(0, 0).UTC()

// Service decides whether a user may roll today and records the result
type Service struct {
	repo      ledger.Repository
	loc       *time.Location
	jokeDates map[string]bool
	flair     Flair
	logger    *logging.Logger
	locks     *userLocks
}

// Option configures a Service
type Option func(*Service)

// WithLocation sets the zone that defines a calendar day
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithJokeDates replaces the MM-DD dates on which every roll is presented as a 1
func WithJokeDates(dates []string) Option {
	return func(s *Service) {
		s.jokeDates = make(map[string]bool, len(dates))
		for _, date := range dates {
			s.jokeDates[date] = true
		}
	}
}

// WithFlair replaces the unseeded cosmetic draw
func WithFlair(flair Flair) Option {
	return func(s *Service) {
		if flair != nil {
			s.flair = flair
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new roll service
func NewService(repo ledger.Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		loc:       time.UTC,
		jokeDates: map[string]bool{"04-01": true},
		flair:     DefaultFlair,
		logger:    logging.Default.With("roll"),
		locks:     newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone that defines a calendar day
func (s *Service) Location() *time.Location {
	return s.loc
}

// IsJokeDate reports whether t falls on a joke date in the reference zone
func (s *Service) IsJokeDate(t time.Time) bool {
	return s.jokeDates[t.In(s.loc).Format("01-02")]
}

// AttemptRoll rolls for user at now, or records a duplicate attempt if user already rolled that day.
// Exactly one ledger append happens on success.
func (s *Service) AttemptRoll(ctx context.Context, user entities.UserID, now time.Time) (*Outcome, error) {
	unlock := s.locks.lock(user)
	defer unlock()

	now = now.Truncate(time.Microsecond)

	last, err := s.repo.MostRecentRoll(ctx, user)
	if err != nil {
		return nil, storageError("read most recent roll", err)
	}

	lastAt := epoch
	if last != nil {
		lastAt = last.OccurredAt
	}

	if SameDay(lastAt, now, s.loc) {
		return s.recordDuplicate(ctx, user, now, NextMidnight(lastAt, s.loc))
	}

	value := Draw(user, now, s.loc)
	joke := s.IsJokeDate(now)
	category := Classify(value, joke, s.flair)

	display := value
	if joke {
		display = 1
	}

	record := &entities.RollRecord{
		ID:         uuid.New().String(),
		User:       user,
		Value:      value,
		OccurredAt: now,
		Day:        DayOf(now, s.loc),
	}

	if err := s.repo.AppendRoll(ctx, record); err != nil {
		if types.IsRollError(err, types.ErrAlreadyRolled) {
			// Another process rolled for this user between our read and write
			s.logger.Warn("Roll for user %s on %s lost a race, recording duplicate", user, record.Day)
			return s.recordDuplicate(ctx, user, now, NextMidnight(now, s.loc))
		}
		return nil, storageError("append roll", err)
	}

	s.logger.Debug("User %s rolled %d (%s) on %s", user, value, category, record.Day)

	return &Outcome{
		Kind:         KindRolled,
		Value:        value,
		DisplayValue: display,
		Category:     category,
		Record:       record,
	}, nil
}

func (s *Service) recordDuplicate(ctx context.Context, user entities.UserID, now, nextEligible time.Time) (*Outcome, error) {
	attempt := &entities.DuplicateAttempt{
		ID:          uuid.New().String(),
		User:        user,
		AttemptedAt: now,
		Day:         DayOf(now, s.loc),
	}

	if err := s.repo.AppendDuplicate(ctx, attempt); err != nil {
		return nil, storageError("append duplicate attempt", err)
	}

	s.logger.Debug("User %s already rolled on %s, next eligible %s", user, attempt.Day, nextEligible.Format(time.RFC3339))

	return &Outcome{
		Kind:         KindAlreadyRolled,
		NextEligible: nextEligible,
		Attempt:      attempt,
	}, nil
}

// InvalidateDay removes user's active roll on the calendar day of day, returning the removed record
func (s *Service) InvalidateDay(ctx context.Context, user entities.UserID, day time.Time, removedBy entities.UserID) (*entities.RollRecord, error) {
	local := day.In(s.loc)
	target := DayOf(local, s.loc)

	rolls, err := s.repo.QueryByUserAndMonth(ctx, user, local.Month(), local.Year())
	if err != nil {
		return nil, storageError("query user rolls", err)
	}

	for _, record := range rolls {
		if record.Day != target || record.Removed {
			continue
		}
		if err := s.repo.Invalidate(ctx, user, record.OccurredAt, removedBy); err != nil {
			return nil, storageError("invalidate roll", err)
		}
		by := removedBy
		record.Removed = true
		record.RemovedBy = &by
		s.logger.Info("Roll %s for user %s on %s removed by %s", record.ID, user, target, removedBy)
		return record, nil
	}

	return nil, types.NewRollError(types.ErrNotFound, "no active roll for user "+user.String()+" on "+target)
}

// storageError keeps coded ledger errors and marks anything else as a storage failure
func storageError(op string, err error) error {
	var rollErr *types.RollError
	if types.As(err, &rollErr) {
		return err
	}
	return types.WrapError(types.ErrStorageUnavailable, op, err)
}
