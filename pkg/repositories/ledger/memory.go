package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/google/uuid"
)

// MemoryRepository implements Repository using in-memory storage
type MemoryRepository struct {
	rolls      map[entities.UserID][]*entities.RollRecord
	duplicates []*entities.DuplicateAttempt
	users      map[entities.UserID]string
	mu         sync.RWMutex
}

// NewMemoryRepository creates a new in-memory ledger
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rolls: make(map[entities.UserID][]*entities.RollRecord),
		users: make(map[entities.UserID]string),
	}
}

func (r *MemoryRepository) MostRecentRoll(ctx context.Context, user entities.UserID) (*entities.RollRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *entities.RollRecord
	for _, roll := range r.rolls[user] {
		if latest == nil || roll.OccurredAt.After(latest.OccurredAt) {
			latest = roll
		}
	}
	if latest == nil {
		return nil, nil
	}
	return r.copyRoll(latest), nil
}

func (r *MemoryRepository) AppendRoll(ctx context.Context, roll *entities.RollRecord) error {
	if err := validateRoll(roll); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rolls[roll.User] {
		if existing.Day == roll.Day {
			return errAlreadyRolled(roll)
		}
	}

	if roll.ID == "" {
		roll.ID = uuid.New().String()
	}

	rollCopy := *roll
	rollCopy.Username = ""
	r.rolls[roll.User] = append(r.rolls[roll.User], &rollCopy)
	return nil
}

func (r *MemoryRepository) AppendDuplicate(ctx context.Context, attempt *entities.DuplicateAttempt) error {
	if attempt == nil {
		return types.NewRollError(types.ErrInvalidArgument, "attempt is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	attemptCopy := *attempt
	attemptCopy.Username = ""
	r.duplicates = append(r.duplicates, &attemptCopy)
	return nil
}

func (r *MemoryRepository) Invalidate(ctx context.Context, user entities.UserID, occurredAt time.Time, removedBy entities.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, roll := range r.rolls[user] {
		if roll.Removed || !roll.OccurredAt.Equal(occurredAt) {
			continue
		}
		by := removedBy
		roll.Removed = true
		roll.RemovedBy = &by
		return nil
	}
	return errRollNotFound(user, occurredAt)
}

func (r *MemoryRepository) QueryByUserAndMonth(ctx context.Context, user entities.UserID, month time.Month, year int) ([]*entities.RollRecord, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	from, to := MonthBounds(month, year)
	result := make([]*entities.RollRecord, 0)
	for _, roll := range r.rolls[user] {
		if roll.Day >= from && roll.Day < to {
			result = append(result, r.copyRoll(roll))
		}
	}
	sortRolls(result)
	return result, nil
}

func (r *MemoryRepository) QueryByMonth(ctx context.Context, month time.Month, year int) ([]*entities.RollRecord, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	from, to := MonthBounds(month, year)
	result := make([]*entities.RollRecord, 0)
	for _, rolls := range r.rolls {
		for _, roll := range rolls {
			if roll.Day >= from && roll.Day < to {
				result = append(result, r.copyRoll(roll))
			}
		}
	}
	sortRolls(result)
	return result, nil
}

func (r *MemoryRepository) QueryDuplicatesByMonth(ctx context.Context, month time.Month, year int) ([]*entities.DuplicateAttempt, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	from, to := MonthBounds(month, year)
	result := make([]*entities.DuplicateAttempt, 0)
	for _, attempt := range r.duplicates {
		if attempt.Day >= from && attempt.Day < to {
			attemptCopy := *attempt
			attemptCopy.Username = r.users[attempt.User]
			result = append(result, &attemptCopy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AttemptedAt.Before(result[j].AttemptedAt)
	})
	return result, nil
}

func (r *MemoryRepository) SaveUser(ctx context.Context, user *entities.User) error {
	if user == nil {
		return types.NewRollError(types.ErrInvalidArgument, "user is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = user.Username
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

// copyRoll must be called with the lock held
func (r *MemoryRepository) copyRoll(roll *entities.RollRecord) *entities.RollRecord {
	rollCopy := *roll
	if roll.RemovedBy != nil {
		by := *roll.RemovedBy
		rollCopy.RemovedBy = &by
	}
	rollCopy.Username = r.users[roll.User]
	return &rollCopy
}

func sortRolls(rolls []*entities.RollRecord) {
	sort.SliceStable(rolls, func(i, j int) bool {
		return rolls[i].OccurredAt.Before(rolls[j].OccurredAt)
	})
}
