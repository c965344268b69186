package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/filex"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

const downloadsDir = "downloads"

// errDryRun marks an item that was repackaged but deliberately not
// uploaded.
var errDryRun = errors.New("dry run")

// processItem takes one catalog item through download, repackaging and
// upload. The source item's id is the group the variants are registered
// under.
func (app *App) processItem(ctx context.Context, name string) (models.Summary, error) {
	log := app.logger.With(logging.KeyItem, name)

	it, err := app.items.Get(ctx, name)
	if err != nil {
		return models.Summary{}, err
	}

	files, err := app.catalog.List3MF(ctx, it.ModelID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("list containers: %w", err)
	}
	if len(files) == 0 {
		return models.Summary{}, common.ErrNoFiles
	}
	src := files[0]
	log.Info(ctx, "container selected", "file_id", src.ID, "file", src.Name, "size", src.Size, "printer", src.PrinterName)

	url, err := app.catalog.DownloadURL(ctx, src.ID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("resolve download: %w", err)
	}

	if !app.config.DryRun {
		if _, err := app.items.MarkVisited(ctx, name); err != nil {
			return models.Summary{}, err
		}
		if err := app.items.Save(ctx); err != nil {
			return models.Summary{}, fmt.Errorf("save catalog: %w", err)
		}
	}

	dir, err := filex.EnsureSubdDir(app.config.WorkDir, downloadsDir)
	if err != nil {
		return models.Summary{}, err
	}
	dst := filepath.Join(dir, filex.SanitizeName(name)+".3mf")
	n, err := app.catalog.Download(ctx, url, dst)
	if err != nil {
		return models.Summary{}, err
	}
	defer os.Remove(dst)
	log.Info(ctx, "container downloaded", "bytes", n)

	batch, err := app.repackager.Repackage(ctx, name, dst)
	if err != nil {
		return models.Summary{}, fmt.Errorf("repackage: %w", err)
	}
	log.Info(ctx, "variants ready", "count", len(batch.Variants), "dir", batch.Dir)

	if app.config.DryRun {
		log.Info(ctx, "dry run, upload skipped", logging.KeyOutcome, logging.OutcomeSkipped)
		return models.Summary{}, errDryRun
	}

	return app.uploader.UploadBatch(ctx, *batch, it.ModelID)
}
