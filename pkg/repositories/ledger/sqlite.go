package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/db/migrations"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names registered by the two SQLite packages
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// sqliteTimeLayout keeps microseconds and sorts lexically in time order
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

const (
	selectRollSQL = `
	SELECT r.id, r.user_id, r.roll_value, r.occurred_at, r.roll_day, r.removed, r.removed_by, COALESCE(u.username, '')
	FROM rolls r LEFT JOIN users u ON u.user_id = r.user_id`

	selectDuplicateSQL = `
	SELECT d.id, d.user_id, d.attempted_at, d.roll_day, COALESCE(u.username, '')
	FROM double_rolls d LEFT JOIN users u ON u.user_id = d.user_id`
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens dbPath with the named driver and applies pending migrations
func NewSQLiteRepository(driver, dbPath string, logger *logging.Logger) (*SQLiteRepository, error) {
	if driver != DriverMattn && driver != DriverModernc {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	if logger == nil {
		logger = logging.Default
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One writer; pragmas below apply to this connection only
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	migrator, err := migrations.NewMigrator(db, migrations.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := migrator.WithLogger(logger.With("migrations")).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// DB exposes the underlying handle for maintenance commands
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) MostRecentRoll(ctx context.Context, user entities.UserID) (*entities.RollRecord, error) {
	row := r.db.QueryRowContext(ctx, selectRollSQL+`
	WHERE r.user_id = ?
	ORDER BY r.occurred_at DESC
	LIMIT 1`, int64(user))

	roll, err := scanSQLiteRoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.ErrStorageUnavailable, "query most recent roll", err)
	}
	return roll, nil
}

func (r *SQLiteRepository) AppendRoll(ctx context.Context, roll *entities.RollRecord) error {
	if err := validateRoll(roll); err != nil {
		return err
	}
	if roll.ID == "" {
		roll.ID = uuid.New().String()
	}

	var removedBy sql.NullInt64
	if roll.RemovedBy != nil {
		removedBy = sql.NullInt64{Int64: int64(*roll.RemovedBy), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO rolls (id, user_id, roll_value, occurred_at, roll_day, removed, removed_by)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		roll.ID,
		int64(roll.User),
		roll.Value,
		formatSQLiteTime(roll.OccurredAt),
		roll.Day,
		roll.Removed,
		removedBy,
	)
	if err != nil {
		if isSQLiteDayConflict(err) {
			return errAlreadyRolled(roll)
		}
		return types.WrapError(types.ErrStorageUnavailable, "insert roll", err)
	}
	return nil
}

func (r *SQLiteRepository) AppendDuplicate(ctx context.Context, attempt *entities.DuplicateAttempt) error {
	if attempt == nil {
		return types.NewRollError(types.ErrInvalidArgument, "attempt is required")
	}
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO double_rolls (id, user_id, attempted_at, roll_day)
	VALUES (?, ?, ?, ?)`,
		attempt.ID,
		int64(attempt.User),
		formatSQLiteTime(attempt.AttemptedAt),
		attempt.Day,
	)
	if err != nil {
		return types.WrapError(types.ErrStorageUnavailable, "insert duplicate attempt", err)
	}
	return nil
}

func (r *SQLiteRepository) Invalidate(ctx context.Context, user entities.UserID, occurredAt time.Time, removedBy entities.UserID) error {
	result, err := r.db.ExecContext(ctx, `
	UPDATE rolls SET removed = 1, removed_by = ?
	WHERE user_id = ? AND occurred_at = ? AND removed = 0`,
		int64(removedBy),
		int64(user),
		formatSQLiteTime(occurredAt),
	)
	if err != nil {
		return types.WrapError(types.ErrStorageUnavailable, "invalidate roll", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.WrapError(types.ErrStorageUnavailable, "invalidate roll", err)
	}
	if affected == 0 {
		return errRollNotFound(user, occurredAt)
	}
	return nil
}

func (r *SQLiteRepository) QueryByUserAndMonth(ctx context.Context, user entities.UserID, month time.Month, year int) ([]*entities.RollRecord, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	from, to := MonthBounds(month, year)

	rows, err := r.db.QueryContext(ctx, selectRollSQL+`
	WHERE r.user_id = ? AND r.roll_day >= ? AND r.roll_day < ?
	ORDER BY r.occurred_at ASC`, int64(user), from, to)
	if err != nil {
		return nil, types.WrapError(types.ErrStorageUnavailable, "query user rolls", err)
	}
	return collectSQLiteRolls(rows)
}

func (r *SQLiteRepository) QueryByMonth(ctx context.Context, month time.Month, year int) ([]*entities.RollRecord, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	from, to := MonthBounds(month, year)

	rows, err := r.db.QueryContext(ctx, selectRollSQL+`
	WHERE r.roll_day >= ? AND r.roll_day < ?
	ORDER BY r.occurred_at ASC`, from, to)
	if err != nil {
		return nil, types.WrapError(types.ErrStorageUnavailable, "query monthly rolls", err)
	}
	return collectSQLiteRolls(rows)
}

func (r *SQLiteRepository) QueryDuplicatesByMonth(ctx context.Context, month time.Month, year int) ([]*entities.DuplicateAttempt, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	from, to := MonthBounds(month, year)

	rows, err := r.db.QueryContext(ctx, selectDuplicateSQL+`
	WHERE d.roll_day >= ? AND d.roll_day < ?
	ORDER BY d.attempted_at ASC`, from, to)
	if err != nil {
		return nil, types.WrapError(types.ErrStorageUnavailable, "query duplicate attempts", err)
	}
	defer rows.Close()

	attempts := make([]*entities.DuplicateAttempt, 0)
	for rows.Next() {
		var (
			attempt     entities.DuplicateAttempt
			userID      int64
			attemptedAt string
		)
		if err := rows.Scan(&attempt.ID, &userID, &attemptedAt, &attempt.Day, &attempt.Username); err != nil {
			return nil, types.WrapError(types.ErrStorageUnavailable, "scan duplicate attempt", err)
		}
		attempt.User = entities.UserID(userID)
		if attempt.AttemptedAt, err = parseSQLiteTime(attemptedAt); err != nil {
			return nil, types.WrapError(types.ErrStorageUnavailable, "parse attempted_at", err)
		}
		attempts = append(attempts, &attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.ErrStorageUnavailable, "iterate duplicate attempts", err)
	}
	return attempts, nil
}

func (r *SQLiteRepository) SaveUser(ctx context.Context, user *entities.User) error {
	if user == nil {
		return types.NewRollError(types.ErrInvalidArgument, "user is required")
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO users (user_id, username, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
		int64(user.ID),
		user.Username,
		formatSQLiteTime(time.Now()),
	)
	if err != nil {
		return types.WrapError(types.ErrStorageUnavailable, "save user", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRoll(row rowScanner) (*entities.RollRecord, error) {
	var (
		roll       entities.RollRecord
		userID     int64
		occurredAt string
		removedBy  sql.NullInt64
	)
	if err := row.Scan(&roll.ID, &userID, &roll.Value, &occurredAt, &roll.Day, &roll.Removed, &removedBy, &roll.Username); err != nil {
		return nil, err
	}

	roll.User = entities.UserID(userID)
	if removedBy.Valid {
		by := entities.UserID(removedBy.Int64)
		roll.RemovedBy = &by
	}

	var err error
	if roll.OccurredAt, err = parseSQLiteTime(occurredAt); err != nil {
		return nil, fmt.Errorf("parse occurred_at %q: %w", occurredAt, err)
	}
	return &roll, nil
}

func collectSQLiteRolls(rows *sql.Rows) ([]*entities.RollRecord, error) {
	defer rows.Close()

	rolls := make([]*entities.RollRecord, 0)
	for rows.Next() {
		roll, err := scanSQLiteRoll(rows)
		if err != nil {
			return nil, types.WrapError(types.ErrStorageUnavailable, "scan roll", err)
		}
		rolls = append(rolls, roll)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.ErrStorageUnavailable, "iterate rolls", err)
	}
	return rolls, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(value string) (time.Time, error) {
	return time.ParseInLocation(sqliteTimeLayout, value, time.UTC)
}

// Both drivers report constraint violations with SQLite's own message text
func isSQLiteDayConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "roll_day")
}
