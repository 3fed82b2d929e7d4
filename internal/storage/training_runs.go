package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// AppendRun records a training run. Existing rows are never modified.
func (s *SQLiteStorage) AppendRun(ctx context.Context, run *model.TrainingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_runs (id, run_at, mae, mape, training_rows, validation_rows)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RunAt.UTC(), run.MAE, run.MAPE, run.TrainingRows, run.ValidationRows)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateRunID, run.ID)
		}
		return fmt.Errorf("failed to append training run: %w", err)
	}
	return nil
}

// ListRuns returns runs oldest first. A positive limit keeps only the most
// recent runs; zero returns all of them.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRunLimit, limit)
	}

	query := `
		SELECT id, run_at, mae, mape, training_rows, validation_rows
		FROM (
			SELECT seq, id, run_at, mae, mape, training_rows, validation_rows
			FROM training_runs
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC`
	sqlLimit := limit
	if sqlLimit == 0 {
		sqlLimit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, sqlLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.TrainingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read training runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run, or common.ErrNotFound when the
// history is empty.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_at, mae, mape, training_rows, validation_rows
		FROM training_runs
		ORDER BY seq DESC
		LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no training runs recorded", common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CountRuns returns the number of recorded runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count training runs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.TrainingRun, error) {
	var run model.TrainingRun
	var runAt time.Time
	if err := row.Scan(&run.ID, &runAt, &run.MAE, &run.MAPE, &run.TrainingRows, &run.ValidationRows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan training run: %w", err)
	}
	run.RunAt = runAt.UTC()
	return run, nil
}
