package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/stretchr/testify/suite"
)

var quietLogger = logging.NewLoggerTo(os.Stderr, logging.ERROR)

// RepositoryTestSuite runs the same behavioural checks against every backend
type RepositoryTestSuite struct {
	suite.Suite
	newRepo func(t *testing.T) Repository
	repo    Repository
	ctx     context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.newRepo(s.T())
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.NoError(s.repo.Close())
}

func TestMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		return NewMemoryRepository()
	}})
}

func TestSQLiteRepositoryModernc(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		repo, err := NewSQLiteRepository(DriverModernc, filepath.Join(t.TempDir(), "ledger.db"), quietLogger)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return repo
	}})
}

func TestSQLiteRepositoryMattn(t *testing.T) {
	probe, err := NewSQLiteRepository(DriverMattn, filepath.Join(t.TempDir(), "probe.db"), quietLogger)
	if err != nil {
		t.Skipf("mattn driver unavailable (needs cgo): %v", err)
	}
	probe.Close()

	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		repo, err := NewSQLiteRepository(DriverMattn, filepath.Join(t.TempDir(), "ledger.db"), quietLogger)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return repo
	}})
}

func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("PITBOT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PITBOT_TEST_DATABASE_URL not set")
	}

	suite.Run(t, &RepositoryTestSuite{newRepo: func(t *testing.T) Repository {
		ctx := context.Background()
		repo, err := NewPostgresRepository(ctx, url, quietLogger)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if _, err := repo.pool.Exec(ctx, "TRUNCATE rolls, double_rolls, users"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return repo
	}})
}

func at(year int, month time.Month, day, hour, min, sec, usec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, usec*1000, time.UTC)
}

func newRoll(user entities.UserID, value int, when time.Time) *entities.RollRecord {
	return &entities.RollRecord{
		User:       user,
		Value:      value,
		OccurredAt: when,
		Day:        when.UTC().Format(entities.DayLayout),
	}
}

func newAttempt(user entities.UserID, when time.Time) *entities.DuplicateAttempt {
	return &entities.DuplicateAttempt{
		User:        user,
		AttemptedAt: when,
		Day:         when.UTC().Format(entities.DayLayout),
	}
}

func (s *RepositoryTestSuite) TestMostRecentRollWithoutHistory() {
	roll, err := s.repo.MostRecentRoll(s.ctx, 42)
	s.NoError(err)
	s.Nil(roll)
}

func (s *RepositoryTestSuite) TestAppendAndMostRecentRoll() {
	first := newRoll(42, 7, at(2024, time.March, 1, 10, 0, 0, 123456))
	second := newRoll(42, 3, at(2024, time.March, 2, 0, 0, 1, 0))
	other := newRoll(99, 12, at(2024, time.March, 3, 9, 0, 0, 0))

	s.Require().NoError(s.repo.AppendRoll(s.ctx, first))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, second))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, other))
	s.NotEmpty(first.ID, "append should assign an id")

	latest, err := s.repo.MostRecentRoll(s.ctx, 42)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(second.ID, latest.ID)
	s.Equal(3, latest.Value)
	s.Equal("2024-03-02", latest.Day)
	s.True(latest.OccurredAt.Equal(second.OccurredAt))
	s.False(latest.Removed)
	s.Nil(latest.RemovedBy)
}

func (s *RepositoryTestSuite) TestTimestampKeepsMicroseconds() {
	when := at(2024, time.March, 1, 10, 0, 0, 654321)
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 5, when)))

	latest, err := s.repo.MostRecentRoll(s.ctx, 42)
	s.Require().NoError(err)
	s.True(latest.OccurredAt.Equal(when), "got %s", latest.OccurredAt)
}

func (s *RepositoryTestSuite) TestAppendRollSameDayConflicts() {
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 7, at(2024, time.March, 1, 10, 0, 0, 0))))

	err := s.repo.AppendRoll(s.ctx, newRoll(42, 2, at(2024, time.March, 1, 18, 0, 0, 0)))
	s.True(types.IsRollError(err, types.ErrAlreadyRolled), "got %v", err)

	rolls, err := s.repo.QueryByUserAndMonth(s.ctx, 42, time.March, 2024)
	s.Require().NoError(err)
	s.Len(rolls, 1)
}

func (s *RepositoryTestSuite) TestAppendRollRejectsOutOfRangeValue() {
	err := s.repo.AppendRoll(s.ctx, newRoll(42, 13, at(2024, time.March, 1, 10, 0, 0, 0)))
	s.True(types.IsRollError(err, types.ErrInvalidArgument))
}

func (s *RepositoryTestSuite) TestInvalidate() {
	when := at(2024, time.March, 1, 10, 0, 0, 250000)
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 7, when)))

	s.Require().NoError(s.repo.Invalidate(s.ctx, 42, when, 7))

	rolls, err := s.repo.QueryByUserAndMonth(s.ctx, 42, time.March, 2024)
	s.Require().NoError(err)
	s.Require().Len(rolls, 1)
	s.True(rolls[0].Removed)
	s.Require().NotNil(rolls[0].RemovedBy)
	s.Equal(entities.UserID(7), *rolls[0].RemovedBy)

	// Removed rolls still count as the day's roll
	latest, err := s.repo.MostRecentRoll(s.ctx, 42)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.True(latest.Removed)

	err = s.repo.Invalidate(s.ctx, 42, when, 7)
	s.True(types.IsRollError(err, types.ErrNotFound), "re-invalidate should be not found, got %v", err)
}

func (s *RepositoryTestSuite) TestInvalidateUnknownRoll() {
	err := s.repo.Invalidate(s.ctx, 42, at(2024, time.March, 1, 10, 0, 0, 0), 7)
	s.True(types.IsRollError(err, types.ErrNotFound))
}

func (s *RepositoryTestSuite) TestQueryByUserAndMonth() {
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 4, at(2024, time.March, 5, 9, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 8, at(2024, time.March, 1, 9, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 1, at(2024, time.April, 1, 0, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 2, at(2024, time.February, 29, 23, 59, 59, 999999))))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(99, 6, at(2024, time.March, 3, 9, 0, 0, 0))))

	rolls, err := s.repo.QueryByUserAndMonth(s.ctx, 42, time.March, 2024)
	s.Require().NoError(err)
	s.Require().Len(rolls, 2)
	s.Equal(8, rolls[0].Value, "results should be oldest first")
	s.Equal(4, rolls[1].Value)

	rolls, err = s.repo.QueryByUserAndMonth(s.ctx, 42, time.January, 2024)
	s.Require().NoError(err)
	s.Empty(rolls)
}

func (s *RepositoryTestSuite) TestQueryByMonthFillsUsernames() {
	s.Require().NoError(s.repo.SaveUser(s.ctx, &entities.User{ID: 42, Username: "old name"}))
	s.Require().NoError(s.repo.SaveUser(s.ctx, &entities.User{ID: 42, Username: "dingo"}))

	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(99, 6, at(2024, time.March, 3, 9, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 11, at(2024, time.March, 2, 9, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendRoll(s.ctx, newRoll(42, 5, at(2024, time.April, 2, 9, 0, 0, 0))))

	rolls, err := s.repo.QueryByMonth(s.ctx, time.March, 2024)
	s.Require().NoError(err)
	s.Require().Len(rolls, 2)
	s.Equal(entities.UserID(42), rolls[0].User)
	s.Equal("dingo", rolls[0].Username)
	s.Equal(entities.UserID(99), rolls[1].User)
	s.Empty(rolls[1].Username, "unknown users have no username")
}

func (s *RepositoryTestSuite) TestQueryDuplicatesByMonth() {
	s.Require().NoError(s.repo.SaveUser(s.ctx, &entities.User{ID: 42, Username: "dingo"}))
	s.Require().NoError(s.repo.AppendDuplicate(s.ctx, newAttempt(42, at(2024, time.March, 1, 19, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendDuplicate(s.ctx, newAttempt(42, at(2024, time.March, 1, 18, 0, 0, 0))))
	s.Require().NoError(s.repo.AppendDuplicate(s.ctx, newAttempt(7, at(2024, time.April, 1, 18, 0, 0, 0))))

	attempts, err := s.repo.QueryDuplicatesByMonth(s.ctx, time.March, 2024)
	s.Require().NoError(err)
	s.Require().Len(attempts, 2)
	s.True(attempts[0].AttemptedAt.Equal(at(2024, time.March, 1, 18, 0, 0, 0)))
	s.Equal("dingo", attempts[0].Username)
	s.NotEmpty(attempts[0].ID)
}

func (s *RepositoryTestSuite) TestInvalidMonth() {
	_, err := s.repo.QueryByMonth(s.ctx, time.Month(13), 2024)
	s.True(types.IsRollError(err, types.ErrInvalidArgument))

	_, err = s.repo.QueryDuplicatesByMonth(s.ctx, time.Month(0), 2024)
	s.True(types.IsRollError(err, types.ErrInvalidArgument))
}

func TestMonthBounds(t *testing.T) {
	from, to := MonthBounds(time.December, 2024)
	if from != "2024-12-01" || to != "2025-01-01" {
		t.Fatalf("unexpected bounds %s %s", from, to)
	}
}
