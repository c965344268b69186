// Package app runs one pass of the bot: discover trending free items,
// then download, repackage and upload each one.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/profilebot/internal/bot/catalog"
	"github.com/dmitrijs2005/profilebot/internal/bot/config"
	"github.com/dmitrijs2005/profilebot/internal/bot/metrics"
	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/bot/repositories/items"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// Catalog is the part of the marketplace API the run needs.
type Catalog interface {
	ListTrending(ctx context.Context, q catalog.TrendQuery) ([]models.ModelInfo, error)
	List3MF(ctx context.Context, groupID string) ([]models.Model3MFInfo, error)
	DownloadURL(ctx context.Context, fileID string) (string, error)
	Download(ctx context.Context, url, dst string) (int64, error)
}

type Repackager interface {
	Repackage(ctx context.Context, modelName, sourcePath string) (*models.Batch, error)
}

type Uploader interface {
	UploadBatch(ctx context.Context, batch models.Batch, groupID string) (models.Summary, error)
}

type textfileWriter interface {
	WriteTextfile(path string, finished time.Time) error
}

// Report is the outcome of a run.
type Report struct {
	Discovered int
	// Processed counts items with at least one uploaded variant.
	Processed  int
	Repackaged int
	Uploaded   int
	// Errors counts failed items plus failed variants.
	Errors int
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	clock      clock.Clock
	catalog    Catalog
	items      items.Repository
	repackager Repackager
	uploader   Uploader
	metrics    metrics.Recorder
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run discovers items and processes them in order. It stops early on
// cancellation and when the platform withdraws the model token; every
// other failure is counted and the run moves on.
func (app *App) Run(ctx context.Context) (Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.initSignalHandler(ctx, cancel)

	var rep Report
	defer app.finish(ctx, &rep)

	names, err := app.Discover(ctx)
	if err != nil {
		return rep, err
	}
	rep.Discovered = len(names)
	if len(names) == 0 {
		app.logger.Info(ctx, "nothing to process")
		return rep, nil
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		app.logger.Info(ctx, "processing item", logging.KeyItem, name, "position", i+1, "of", len(names))

		sum, err := app.processItem(ctx, name)
		switch {
		case errors.Is(err, common.ErrNoModelToken):
			return rep, err
		case ctx.Err() != nil:
			return rep, ctx.Err()
		case errors.Is(err, errDryRun):
			rep.Repackaged++
			app.metrics.IncItem(logging.OutcomeSkipped)
			continue
		case err != nil:
			rep.Errors++
			app.metrics.IncItem(logging.OutcomeFailed)
			app.logger.Error(ctx, "item failed", logging.KeyItem, name, logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
			continue
		}

		rep.Repackaged++
		rep.Uploaded += sum.Succeeded
		rep.Errors += sum.Failed
		if sum.Succeeded > 0 {
			rep.Processed++
		}
		if sum.Failed == 0 && sum.Succeeded > 0 {
			app.metrics.IncItem(logging.OutcomeOK)
		} else {
			app.metrics.IncItem(logging.OutcomeFailed)
		}
	}
	return rep, nil
}

func (app *App) finish(ctx context.Context, rep *Report) {
	ctx = context.WithoutCancel(ctx)
	args := []any{
		"discovered", rep.Discovered,
		"processed", rep.Processed,
		"repackaged", rep.Repackaged,
		"uploaded", rep.Uploaded,
		"errors", rep.Errors,
	}
	if c, err := app.items.Counts(ctx); err == nil {
		args = append(args, "catalog_total", c.Total, "catalog_visited", c.Visited, "catalog_unvisited", c.Unvisited)
	}
	app.logger.Info(ctx, "run finished", args...)

	path := app.config.MetricsTextfile
	if w, ok := app.metrics.(textfileWriter); ok && path != "" {
		if err := w.WriteTextfile(path, app.clock.Now()); err != nil {
			app.logger.Warn(ctx, "metrics textfile not written", "path", path, logging.KeyError, err)
		}
	}
}

// Close releases the catalog store.
func (app *App) Close() error {
	return app.items.Close()
}
