package ledger

//go:generate mockgen -destination=mock/mock.go -package=mock_ledger -source=interface.go

import (
	"context"
	"fmt"
	"time"

	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
)

// Repository is the durable record of rolls, duplicate attempts and known users
type Repository interface {
	// MostRecentRoll returns the user's roll with the greatest OccurredAt, removed or not.
	// It returns nil, nil when the user has never rolled.
	MostRecentRoll(ctx context.Context, user entities.UserID) (*entities.RollRecord, error)

	// AppendRoll stores a new roll. A second roll for the same user and Day fails with ErrAlreadyRolled.
	AppendRoll(ctx context.Context, roll *entities.RollRecord) error

	// AppendDuplicate stores a rejected attempt
	AppendDuplicate(ctx context.Context, attempt *entities.DuplicateAttempt) error

	// Invalidate marks the user's active roll at occurredAt as removed by removedBy
	Invalidate(ctx context.Context, user entities.UserID, occurredAt time.Time, removedBy entities.UserID) error

	// QueryByUserAndMonth returns one user's rolls for a month, oldest first
	QueryByUserAndMonth(ctx context.Context, user entities.UserID, month time.Month, year int) ([]*entities.RollRecord, error)

	// QueryByMonth returns every roll for a month, oldest first
	QueryByMonth(ctx context.Context, month time.Month, year int) ([]*entities.RollRecord, error)

	// QueryDuplicatesByMonth returns every duplicate attempt for a month, oldest first
	QueryDuplicatesByMonth(ctx context.Context, month time.Month, year int) ([]*entities.DuplicateAttempt, error)

	// SaveUser records the user's latest display name
	SaveUser(ctx context.Context, user *entities.User) error

	// Close releases the backend's connections
	Close() error
}

// MonthBounds returns the half-open Day range [from, to) covering month of year
func MonthBounds(month time.Month, year int) (from, to string) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start.Format(entities.DayLayout), start.AddDate(0, 1, 0).Format(entities.DayLayout)
}

func validateMonth(month time.Month) error {
	if month < time.January || month > time.December {
		return types.NewRollError(types.ErrInvalidArgument, fmt.Sprintf("invalid month %d", month))
	}
	return nil
}

func validateRoll(roll *entities.RollRecord) error {
	if roll == nil {
		return types.NewRollError(types.ErrInvalidArgument, "roll is required")
	}
	if roll.Value < 1 || roll.Value > 12 {
		return types.NewRollError(types.ErrInvalidArgument, fmt.Sprintf("roll value %d out of range", roll.Value))
	}
	if roll.Day == "" {
		return types.NewRollError(types.ErrInvalidArgument, "roll day is required")
	}
	return nil
}

func errAlreadyRolled(roll *entities.RollRecord) error {
	return types.NewRollError(types.ErrAlreadyRolled, fmt.Sprintf("user %s already rolled on %s", roll.User, roll.Day))
}

func errRollNotFound(user entities.UserID, occurredAt time.Time) error {
	return types.NewRollError(types.ErrNotFound, fmt.Sprintf("no active roll for user %s at %s", user, occurredAt.UTC().Format(time.RFC3339Nano)))
}
