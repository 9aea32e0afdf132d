package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fadedpez/pitbot/internal/logging"
	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/db/migrations"
	"github.com/fadedpez/pitbot/pkg/entities"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository on a pgx connection pool
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to databaseURL, pings it and applies pending migrations
func NewPostgresRepository(ctx context.Context, databaseURL string, logger *logging.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = logging.Default
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	migrator, err := migrations.NewMigrator(db, migrations.Postgres)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := migrator.WithLogger(logger.With("migrations")).MigrateUp(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	logger.Info("Connected to PostgreSQL ledger")
	return &PostgresRepository{pool: pool}, nil
}

// withConn scopes one pooled connection to a single operation
func (r *PostgresRepository) withConn(ctx context.Context, op string, fn func(conn *pgxpool.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return types.WrapError(types.ErrStorageUnavailable, op, err)
	}
	defer conn.Release()

	return fn(conn)
}

func (r *PostgresRepository) MostRecentRoll(ctx context.Context, user entities.UserID) (*entities.RollRecord, error) {
	var roll *entities.RollRecord
	err := r.withConn(ctx, "query most recent roll", func(conn *pgxpool.Conn) error {
		row := conn.QueryRow(ctx, selectRollSQL+`
		WHERE r.user_id = $1
		ORDER BY r.occurred_at DESC
		LIMIT 1`, int64(user))

		scanned, err := scanPostgresRoll(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return types.WrapError(types.ErrStorageUnavailable, "query most recent roll", err)
		}
		roll = scanned
		return nil
	})
	return roll, err
}

func (r *PostgresRepository) AppendRoll(ctx context.Context, roll *entities.RollRecord) error {
	if err := validateRoll(roll); err != nil {
		return err
	}
	if roll.ID == "" {
		roll.ID = uuid.New().String()
	}

	var removedBy *int64
	if roll.RemovedBy != nil {
		by := int64(*roll.RemovedBy)
		removedBy = &by
	}

	return r.withConn(ctx, "insert roll", func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
		INSERT INTO rolls (id, user_id, roll_value, occurred_at, roll_day, removed, removed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			roll.ID,
			int64(roll.User),
			roll.Value,
			roll.OccurredAt.UTC(),
			roll.Day,
			roll.Removed,
			removedBy,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "idx_rolls_user_day" {
				return errAlreadyRolled(roll)
			}
			return types.WrapError(types.ErrStorageUnavailable, "insert roll", err)
		}
		return nil
	})
}

func (r *PostgresRepository) AppendDuplicate(ctx context.Context, attempt *entities.DuplicateAttempt) error {
	if attempt == nil {
		return types.NewRollError(types.ErrInvalidArgument, "attempt is required")
	}
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	return r.withConn(ctx, "insert duplicate attempt", func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
		INSERT INTO double_rolls (id, user_id, attempted_at, roll_day)
		VALUES ($1, $2, $3, $4)`,
			attempt.ID,
			int64(attempt.User),
			attempt.AttemptedAt.UTC(),
			attempt.Day,
		)
		if err != nil {
			return types.WrapError(types.ErrStorageUnavailable, "insert duplicate attempt", err)
		}
		return nil
	})
}

func (r *PostgresRepository) Invalidate(ctx context.Context, user entities.UserID, occurredAt time.Time, removedBy entities.UserID) error {
	return r.withConn(ctx, "invalidate roll", func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `
		UPDATE rolls SET removed = TRUE, removed_by = $1
		WHERE user_id = $2 AND occurred_at = $3 AND NOT removed`,
			int64(removedBy),
			int64(user),
			occurredAt.UTC(),
		)
		if err != nil {
			return types.WrapError(types.ErrStorageUnavailable, "invalidate roll", err)
		}
		if tag.RowsAffected() == 0 {
			return errRollNotFound(user, occurredAt)
		}
		return nil
	})
}

func (r *PostgresRepository) QueryByUserAndMonth(ctx context.Context, user entities.UserID, month time.Month, year int) ([]*entities.RollRecord, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	from, to := MonthBounds(month, year)

	return r.queryRolls(ctx, "query user rolls", selectRollSQL+`
	WHERE r.user_id = $1 AND r.roll_day >= $2 AND r.roll_day < $3
	ORDER BY r.occurred_at ASC`, int64(user), from, to)
}

func (r *PostgresRepository) QueryByMonth(ctx context.Context, month time.Month, year int) ([]*entities.RollRecord, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	from, to := MonthBounds(month, year)

	return r.queryRolls(ctx, "query monthly rolls", selectRollSQL+`
	WHERE r.roll_day >= $1 AND r.roll_day < $2
	ORDER BY r.occurred_at ASC`, from, to)
}

func (r *PostgresRepository) queryRolls(ctx context.Context, op, query string, args ...any) ([]*entities.RollRecord, error) {
	rolls := make([]*entities.RollRecord, 0)
	err := r.withConn(ctx, op, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return types.WrapError(types.ErrStorageUnavailable, op, err)
		}
		defer rows.Close()

		for rows.Next() {
			roll, err := scanPostgresRoll(rows)
			if err != nil {
				return types.WrapError(types.ErrStorageUnavailable, "scan roll", err)
			}
			rolls = append(rolls, roll)
		}
		if err := rows.Err(); err != nil {
			return types.WrapError(types.ErrStorageUnavailable, op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rolls, nil
}

func (r *PostgresRepository) QueryDuplicatesByMonth(ctx context.Context, month time.Month, year int) ([]*entities.DuplicateAttempt, error) {
	if err := validateMonth(month); err != nil {
		return nil, err
	}
	from, to := MonthBounds(month, year)

	attempts := make([]*entities.DuplicateAttempt, 0)
	err := r.withConn(ctx, "query duplicate attempts", func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, selectDuplicateSQL+`
		WHERE d.roll_day >= $1 AND d.roll_day < $2
		ORDER BY d.attempted_at ASC`, from, to)
		if err != nil {
			return types.WrapError(types.ErrStorageUnavailable, "query duplicate attempts", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				attempt entities.DuplicateAttempt
				userID  int64
			)
			if err := rows.Scan(&attempt.ID, &userID, &attempt.AttemptedAt, &attempt.Day, &attempt.Username); err != nil {
				return types.WrapError(types.ErrStorageUnavailable, "scan duplicate attempt", err)
			}
			attempt.User = entities.UserID(userID)
			attempt.AttemptedAt = attempt.AttemptedAt.UTC()
			attempts = append(attempts, &attempt)
		}
		if err := rows.Err(); err != nil {
			return types.WrapError(types.ErrStorageUnavailable, "query duplicate attempts", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *PostgresRepository) SaveUser(ctx context.Context, user *entities.User) error {
	if user == nil {
		return types.NewRollError(types.ErrInvalidArgument, "user is required")
	}

	return r.withConn(ctx, "save user", func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
		INSERT INTO users (user_id, username, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username, updated_at = EXCLUDED.updated_at`,
			int64(user.ID),
			user.Username,
		)
		if err != nil {
			return types.WrapError(types.ErrStorageUnavailable, "save user", err)
		}
		return nil
	})
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanPostgresRoll(row pgx.Row) (*entities.RollRecord, error) {
	var (
		roll      entities.RollRecord
		userID    int64
		removedBy *int64
	)
	if err := row.Scan(&roll.ID, &userID, &roll.Value, &roll.OccurredAt, &roll.Day, &roll.Removed, &removedBy, &roll.Username); err != nil {
		return nil, err
	}

	roll.User = entities.UserID(userID)
	roll.OccurredAt = roll.OccurredAt.UTC()
	if removedBy != nil {
		by := entities.UserID(*removedBy)
		roll.RemovedBy = &by
	}
	return &roll, nil
}
