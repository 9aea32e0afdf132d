package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/fadedpez/pitbot/pkg/repositories/ledger"
)

// TimestampLayout is how roll and attempt times appear in exports
const TimestampLayout = "2006-01-02 15:04:05.000000"

const notRemoved = "Not Removed"

var (
	rollsHeader      = []string{"User", "Roll", "Timestamp", "Removed", "Removed By"}
	duplicatesHeader = []string{"User", "Timestamp"}
)

// File is a generated attachment
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service builds CSV exports from the ledger
type Service struct {
	repo ledger.Repository
	loc  *time.Location
}

// NewService creates a report service rendering times in loc
func NewService(repo ledger.Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo: repo,
		loc:  loc,
	}
}

// MonthlyExport returns rolls.csv and doublerolls.csv for every user in the month
func (s *Service) MonthlyExport(ctx context.Context, month time.Month, year int) ([]*File, error) {
	rolls, err := s.repo.QueryByMonth(ctx, month, year)
	if err != nil {
		return nil, err
	}

	attempts, err := s.repo.QueryDuplicatesByMonth(ctx, month, year)
	if err != nil {
		return nil, err
	}

	var rollsBuf, dupBuf bytes.Buffer
	if err := WriteRollsCSV(&rollsBuf, rolls, s.loc); err != nil {
		return nil, types.WrapError(types.ErrInternalError, "write rolls csv", err)
	}
	if err := WriteDuplicatesCSV(&dupBuf, attempts, s.loc); err != nil {
		return nil, types.WrapError(types.ErrInternalError, "write duplicates csv", err)
	}

	return []*File{
		{Name: "rolls.csv", ContentType: "text/csv", Data: rollsBuf.Bytes()},
		{Name: "doublerolls.csv", ContentType: "text/csv", Data: dupBuf.Bytes()},
	}, nil
}

// UserMonthExport returns rolls_<user>.csv with one user's rolls for the month
func (s *Service) UserMonthExport(ctx context.Context, user entities.UserID, month time.Month, year int) (*File, error) {
	rolls, err := s.repo.QueryByUserAndMonth(ctx, user, month, year)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteRollsCSV(&buf, rolls, s.loc); err != nil {
		return nil, types.WrapError(types.ErrInternalError, "write rolls csv", err)
	}

	return &File{
		Name:        fmt.Sprintf("rolls_%s.csv", user),
		ContentType: "text/csv",
		Data:        buf.Bytes(),
	}, nil
}

// WriteRollsCSV writes the rolls table with its header row
func WriteRollsCSV(w io.Writer, rolls []*entities.RollRecord, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(rollsHeader); err != nil {
		return err
	}

	for _, roll := range rolls {
		removed, removedBy := notRemoved, notRemoved
		if roll.Removed {
			removed = "True"
			removedBy = ""
			if roll.RemovedBy != nil {
				removedBy = roll.RemovedBy.String()
			}
		}

		row := []string{
			roll.DisplayName(),
			strconv.Itoa(roll.Value),
			roll.OccurredAt.In(loc).Format(TimestampLayout),
			removed,
			removedBy,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteDuplicatesCSV writes the duplicate attempt table with its header row
func WriteDuplicatesCSV(w io.Writer, attempts []*entities.DuplicateAttempt, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(duplicatesHeader); err != nil {
		return err
	}

	for _, attempt := range attempts {
		if err := writer.Write([]string{attempt.DisplayName(), attempt.AttemptedAt.In(loc).Format(TimestampLayout)}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
