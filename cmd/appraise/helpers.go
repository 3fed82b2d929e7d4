package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/cli"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/config"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/features"
	"github.com/Veraticus/tokyo-appraiser/internal/storage"
	"github.com/Veraticus/tokyo-appraiser/internal/training"
)

// initStorage opens the history database and runs migrations.
func initStorage(ctx context.Context, c *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(c.Paths.Database)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// explainMissing turns a missing input into a UserError naming the command
// that produces it.
func explainMissing(err error, what, producer string) error {
	if !errors.Is(err, common.ErrInputMissing) {
		return err
	}
	if producer == "" {
		return common.NewUserError(fmt.Sprintf("%s not found", what), err)
	}
	return common.NewUserError(fmt.Sprintf("%s not found; run `appraise %s` first", what, producer), err)
}

// cleanStage reads the raw records and writes the clean dataset.
func cleanStage(ctx context.Context, c *config.Config) (*dataset.Table, error) {
	raw, err := dataset.ReadRawFile(c.Paths.Raw)
	if err != nil {
		return nil, explainMissing(err, "raw records "+c.Paths.Raw, "")
	}

	clean, err := cleaning.Clean(ctx, raw, c.CleaningOptions())
	if err != nil {
		return nil, err
	}

	if err := dataset.WriteCSVFile(c.Paths.Clean, clean); err != nil {
		return nil, fmt.Errorf("failed to write clean dataset: %w", err)
	}
	common.Logger(ctx).Info("Clean dataset written", "path", c.Paths.Clean, "rows", clean.Len(), "columns", clean.Width())
	return clean, nil
}

// preprocessStage reads the clean dataset and writes the preprocessed one.
func preprocessStage(ctx context.Context, c *config.Config) (*dataset.Table, error) {
	clean, err := dataset.ReadCSVFile(c.Paths.Clean, cleaning.Schema)
	if err != nil {
		return nil, explainMissing(err, "clean dataset "+c.Paths.Clean, "clean")
	}

	pre, err := features.Preprocess(ctx, clean)
	if err != nil {
		return nil, err
	}

	if err := dataset.WriteCSVFile(c.Paths.Preprocessed, pre); err != nil {
		return nil, fmt.Errorf("failed to write preprocessed dataset: %w", err)
	}
	common.Logger(ctx).Info("Preprocessed dataset written", "path", c.Paths.Preprocessed, "rows", pre.Len(), "columns", pre.Width())
	return pre, nil
}

// trainStage trains on the preprocessed dataset, records the health check
// and promotes the artifact when it passes.
func trainStage(ctx context.Context, c *config.Config, out io.Writer, progress bool) (*training.Result, error) {
	data, err := dataset.ReadCSVFile(c.Paths.Preprocessed, features.Schema)
	if err != nil {
		return nil, explainMissing(err, "preprocessed dataset "+c.Paths.Preprocessed, "preprocess")
	}
	hp, err := training.LoadHyperparameters(c.Paths.Hyperparameters)
	if err != nil {
		return nil, explainMissing(err, "hyperparameters "+c.Paths.Hyperparameters, "")
	}

	store, err := initStorage(ctx, c)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			common.Logger(ctx).Error("Failed to close history database", "error", closeErr)
		}
	}()

	var reporter training.Progress
	if progress {
		reporter = cli.NewRoundProgress(out)
	}
	trainer := training.NewTrainer(c.TrainingOptions(), store, reporter)

	res, err := trainer.Run(ctx, data, hp)
	if errors.Is(err, common.ErrHealthCheckFailed) {
		if latest, latestErr := store.LatestRun(ctx); latestErr == nil {
			fmt.Fprintln(out, cli.RenderRunSummary(*latest, false, c.Paths.Model))
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, cli.RenderRunSummary(res.Run, true, c.Paths.Model))
	return res, nil
}
