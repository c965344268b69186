// Package upload pushes a repackaged batch to the platform: each variant
// is stored, registered against the source item, and the batch directory is
// removed once every variant made it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/profilebot/internal/bot/catalog"
	"github.com/dmitrijs2005/profilebot/internal/bot/metrics"
	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/bot/oss"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/filex"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// Pipeline phases, used in logs and metrics.
const (
	PhaseStore    = "multipart"
	PhaseCover    = "cover"
	PhaseRegister = "register"
	PhaseDetail   = "detail"
	PhaseCleanup  = "cleanup"
	PhaseMirror   = "mirror"
)

const (
	coverFile  = "plate_1.png"
	variantExt = ".3mf"
)

// Storage uploads files to object storage.
type Storage interface {
	UploadModel(ctx context.Context, path string) (oss.Result, error)
	UploadImage(ctx context.Context, path string) (oss.Result, error)
}

// Registrar records uploaded containers on the platform.
type Registrar interface {
	Register3MF(ctx context.Context, r catalog.RegisterRequest) (*models.RegistrationRecord, error)
	GetGroupDetail(ctx context.Context, groupID string) (map[string]any, error)
}

// Mirror keeps a copy of a finished batch before it is removed.
type Mirror interface {
	MirrorBatch(ctx context.Context, modelName string, files []string) error
}

// Options configures an Orchestrator. Mirror and Metrics are optional.
type Options struct {
	Storage   Storage
	Registrar Registrar
	Printers  PrinterTable
	Delay     time.Duration
	Clock     clock.Clock
	Mirror    Mirror
	Metrics   metrics.Recorder
	Logger    logging.Logger
}

type Orchestrator struct {
	storage   Storage
	registrar Registrar
	printers  PrinterTable
	delay     time.Duration
	clock     clock.Clock
	mirror    Mirror
	metrics   metrics.Recorder
	log       logging.Logger
}

func New(o Options) *Orchestrator {
	u := &Orchestrator{
		storage:   o.Storage,
		registrar: o.Registrar,
		printers:  o.Printers,
		delay:     o.Delay,
		clock:     o.Clock,
		mirror:    o.Mirror,
		metrics:   o.Metrics,
		log:       o.Logger,
	}
	if u.clock == nil {
		u.clock = clock.Real()
	}
	if u.metrics == nil {
		u.metrics = metrics.Noop{}
	}
	if u.log == nil {
		u.log = logging.Nop()
	}
	return u
}

// UploadBatch uploads every "*.3mf" in batch.Dir in name order, waiting
// the configured delay between variants. The cover is stored once and its
// URL reused. Variant failures are counted, not returned; the returned
// error is reserved for cancellation and a missing model token.
func (u *Orchestrator) UploadBatch(ctx context.Context, batch models.Batch, groupID string) (models.Summary, error) {
	log := u.log.With(logging.KeyItem, batch.ModelName)

	files, err := listVariants(batch.Dir)
	if err != nil {
		return models.Summary{}, err
	}
	if len(files) == 0 {
		log.Warn(ctx, "no variants to upload", "dir", batch.Dir, logging.KeyOutcome, logging.OutcomeSkipped)
		return models.Summary{}, nil
	}

	cover := batch.CoverPath
	if cover == "" && filex.Exists(filepath.Join(batch.Dir, coverFile)) {
		cover = filepath.Join(batch.Dir, coverFile)
	}
	covers := &coverCache{path: cover}
	codes := variantCodes(batch.Variants)

	var sum models.Summary
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if i > 0 && u.delay > 0 {
			u.clock.Sleep(u.delay)
		}

		err := u.uploadVariant(ctx, log, path, codes[filepath.Base(path)], groupID, covers)
		if errors.Is(err, common.ErrNoModelToken) {
			return sum, err
		}
		if err != nil {
			sum.Failed++
			u.metrics.IncVariant(logging.OutcomeFailed)
			continue
		}
		sum.Succeeded++
		u.metrics.IncVariant(logging.OutcomeOK)
	}

	if sum.Failed == 0 && sum.Succeeded > 0 {
		u.mirrorBatch(ctx, log, batch.ModelName, files, cover)
		if err := removeBatch(batch); err != nil {
			log.Warn(ctx, "batch directory not removed", logging.KeyPhase, PhaseCleanup, logging.KeyError, err)
		} else {
			sum.Cleaned = true
			u.metrics.IncBatchCleaned()
		}
	}

	log.Info(ctx, "batch uploaded", "succeeded", sum.Succeeded, "failed", sum.Failed, "cleaned", sum.Cleaned)
	return sum, nil
}

// coverCache uploads the cover on first use only.
type coverCache struct {
	path  string
	tried bool
	url   string
}

func (u *Orchestrator) coverURL(ctx context.Context, log logging.Logger, c *coverCache) string {
	if c.tried || c.path == "" {
		return c.url
	}
	c.tried = true

	start := u.clock.Now()
	res, err := u.storage.UploadImage(ctx, c.path)
	if err != nil {
		u.metrics.IncUploadFailure(PhaseCover)
		log.Warn(ctx, "cover upload failed", logging.KeyPhase, PhaseCover, logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return ""
	}
	u.metrics.ObserveUpload("image", u.clock.Now().Sub(start))
	c.url = res.URL
	log.Debug(ctx, "cover uploaded", logging.KeyPhase, PhaseCover, "url", c.url)
	return c.url
}

func (u *Orchestrator) uploadVariant(ctx context.Context, log logging.Logger, path, code, groupID string, covers *coverCache) error {
	name := filepath.Base(path)
	if code == "" {
		code = PrinterCode(name)
	}
	printer := u.printers.Name(code)
	if _, known := u.printers.Lookup(code); !known && code != "" {
		log.Warn(ctx, "printer code not mapped, using it verbatim", "printer_code", code)
	}
	log = log.With("file", name, "printer", printer)

	st, err := os.Stat(path)
	if err != nil {
		log.Error(ctx, "variant unreadable", logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return err
	}

	start := u.clock.Now()
	stored, err := u.storage.UploadModel(ctx, path)
	if err != nil {
		u.metrics.IncUploadFailure(PhaseStore)
		log.Error(ctx, "variant upload failed", logging.KeyPhase, PhaseStore, logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return fmt.Errorf("store %s: %w", name, err)
	}
	u.metrics.ObserveUpload("model", u.clock.Now().Sub(start))
	u.metrics.AddUploadedBytes(st.Size())

	coverURL := u.coverURL(ctx, log, covers)

	req := catalog.NewRegisterRequest(stored.Key, st.Size(), name, printer, groupID, coverURL)
	rec, err := u.registrar.Register3MF(ctx, req)
	if err != nil {
		u.metrics.IncUploadFailure(PhaseRegister)
		log.Error(ctx, "variant registration failed", logging.KeyPhase, PhaseRegister, logging.KeyOutcome, logging.OutcomeFailed, logging.KeyError, err)
		return fmt.Errorf("register %s: %w", name, err)
	}

	if _, err := u.registrar.GetGroupDetail(ctx, groupID); err != nil {
		log.Warn(ctx, "group detail refresh failed", logging.KeyPhase, PhaseDetail, logging.KeyError, err)
	}

	log.Info(ctx, "variant registered", logging.KeyPhase, PhaseRegister, logging.KeyOutcome, logging.OutcomeOK,
		"file_id", rec.ID, "filekey", stored.Key, "can_print", rec.IsCanPrint)
	return nil
}

func (u *Orchestrator) mirrorBatch(ctx context.Context, log logging.Logger, modelName string, files []string, cover string) {
	if u.mirror == nil {
		return
	}
	all := files
	if cover != "" {
		all = append(append([]string(nil), files...), cover)
	}
	if err := u.mirror.MirrorBatch(ctx, modelName, all); err != nil {
		log.Warn(ctx, "mirror failed", logging.KeyPhase, PhaseMirror, logging.KeyError, err)
	}
}

// variantCodes maps variant file names to the printer code they were built
// for. Files without an entry fall back to the code in their name.
func variantCodes(vs []models.Variant) map[string]string {
	codes := make(map[string]string, len(vs))
	for _, v := range vs {
		if v.Path != "" && v.PrinterCode != "" {
			codes[filepath.Base(v.Path)] = v.PrinterCode
		}
	}
	return codes
}

// listVariants returns the variant files of dir sorted by name.
func listVariants(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), variantExt) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// removeBatch deletes the output and scratch directories and their parent
// when it is left empty.
func removeBatch(b models.Batch) error {
	if err := os.RemoveAll(b.Dir); err != nil {
		return err
	}
	if b.ScratchDir != "" {
		if err := os.RemoveAll(b.ScratchDir); err != nil {
			return err
		}
	}
	parent := filepath.Dir(b.Dir)
	if entries, err := os.ReadDir(parent); err == nil && len(entries) == 0 {
		_ = os.Remove(parent)
	}
	return nil
}
