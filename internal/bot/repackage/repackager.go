// Package repackage turns one downloaded container into printer-specific
// variants: it refreshes the metadata, strips slicer leftovers, swaps in
// each printer template and re-archives the tree.
package repackage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/filex"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

const (
	metadataDir    = "Metadata"
	configMember   = "creality.config"
	coverMember    = "plate_1.png"
	gcodeLayers    = "custom_gcode_per_layer.xml"
	projectConfig  = "project_settings.config"
	OriginalCode   = "original"
	VariantExt     = ".3mf"
	treeDirName    = "tree"
	outputDirName  = "out"
	scratchArchive = "source.zip"
)

// templateMembers are the files a printer template contributes.
var templateMembers = []string{gcodeLayers, projectConfig}

var creationDate = regexp.MustCompile(`(CreationDate" value=")[^"]*(")`)

// Options configures a Repackager.
type Options struct {
	WorkDir      string
	TemplatesDir string
	Clock        clock.Clock
	Logger       logging.Logger
}

type Repackager struct {
	workDir      string
	templatesDir string
	clock        clock.Clock
	log          logging.Logger
}

func New(o Options) *Repackager {
	r := &Repackager{workDir: o.WorkDir, templatesDir: o.TemplatesDir, clock: o.Clock, log: o.Logger}
	if r.clock == nil {
		r.clock = clock.Real()
	}
	if r.log == nil {
		r.log = logging.Nop()
	}
	return r
}

// Repackage unpacks sourcePath under <work>/<model>/tree and writes one
// variant per template directory into <work>/<model>/out, or a single
// "<model>_original.3mf" when there are no templates. A previous batch for
// the same model is discarded first.
func (r *Repackager) Repackage(ctx context.Context, modelName, sourcePath string) (*models.Batch, error) {
	log := r.log.With(logging.KeyItem, modelName, logging.KeyPhase, "repackage")

	base := filepath.Join(r.workDir, filex.SanitizeName(modelName))
	if err := os.RemoveAll(base); err != nil {
		return nil, fmt.Errorf("reset %s: %w", base, err)
	}
	tree, err := filex.EnsureSubdDir(base, treeDirName)
	if err != nil {
		return nil, err
	}
	out, err := filex.EnsureSubdDir(base, outputDirName)
	if err != nil {
		return nil, err
	}

	archive := filepath.Join(base, scratchArchive)
	if err := filex.CopyFile(sourcePath, archive); err != nil {
		return nil, err
	}
	if err := Unpack(archive, tree); err != nil {
		return nil, err
	}
	if err := os.Remove(archive); err != nil {
		return nil, err
	}

	meta := filepath.Join(tree, metadataDir)
	r.refreshCreationDate(ctx, log, meta)
	r.stripLeftovers(ctx, log, meta)

	batch := &models.Batch{ModelName: modelName, Dir: out, ScratchDir: tree}
	batch.CoverPath = r.prepareCover(ctx, log, meta, base, out)

	codes, err := r.templates()
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		log.Warn(ctx, "no printer templates, producing original variant", "templates_dir", r.templatesDir)
		v, err := r.pack(tree, out, modelName, OriginalCode, batch.CoverPath)
		if err != nil {
			return nil, err
		}
		batch.Variants = append(batch.Variants, v)
		return batch, nil
	}

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.applyTemplate(meta, code); err != nil {
			return nil, fmt.Errorf("template %s: %w", code, err)
		}
		v, err := r.pack(tree, out, modelName, code, batch.CoverPath)
		if err != nil {
			return nil, err
		}
		batch.Variants = append(batch.Variants, v)
		log.Debug(ctx, "variant written", "printer", code, "path", v.Path)
	}

	log.Info(ctx, "container repackaged", "variants", len(batch.Variants), logging.KeyOutcome, logging.OutcomeOK)
	return batch, nil
}

func (r *Repackager) refreshCreationDate(ctx context.Context, log logging.Logger, meta string) {
	path := filepath.Join(meta, configMember)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn(ctx, "metadata config missing", "member", configMember)
		return
	}
	if err != nil {
		log.Warn(ctx, "metadata config unreadable", logging.KeyError, err)
		return
	}
	today := r.clock.Now().Format("2006-01-02")
	updated := creationDate.ReplaceAll(b, []byte("${1}"+today+"${2}"))
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		log.Warn(ctx, "metadata config not updated", logging.KeyError, err)
	}
}

func (r *Repackager) stripLeftovers(ctx context.Context, log logging.Logger, meta string) {
	if !filex.Exists(meta) {
		log.Warn(ctx, "metadata directory missing")
		return
	}
	victims := []string{filepath.Join(meta, gcodeLayers), filepath.Join(meta, projectConfig)}
	for _, pattern := range []string{"*.gcode", "*.md5"} {
		m, _ := filepath.Glob(filepath.Join(meta, pattern))
		victims = append(victims, m...)
	}
	for _, v := range victims {
		if err := os.Remove(v); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn(ctx, "leftover not removed", "path", v, logging.KeyError, err)
		}
	}
}

// prepareCover normalizes the plate preview into out and returns its path,
// or "" when the container has none.
func (r *Repackager) prepareCover(ctx context.Context, log logging.Logger, meta, scratch, out string) string {
	src := filepath.Join(meta, coverMember)
	if !filex.Exists(src) {
		log.Warn(ctx, "cover missing", "member", coverMember)
		return ""
	}

	dst := filepath.Join(out, coverMember)
	tmp := filepath.Join(scratch, "cover.png")
	if err := NormalizeCover(src, tmp); err != nil {
		log.Warn(ctx, "cover not normalized, using original", logging.KeyError, err)
		if err := filex.CopyFile(src, dst); err != nil {
			log.Warn(ctx, "cover not copied", logging.KeyError, err)
			return ""
		}
		return dst
	}
	defer os.Remove(tmp)

	if err := filex.CopyFile(tmp, dst); err != nil {
		log.Warn(ctx, "cover not copied", logging.KeyError, err)
		return ""
	}
	return dst
}

// templates lists the printer codes, one per subdirectory of the template
// root, sorted. A missing root means no templates.
func (r *Repackager) templates() ([]string, error) {
	if r.templatesDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.templatesDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// applyTemplate replaces the template members in meta with the ones from
// the template directory. Members the template lacks are left absent.
func (r *Repackager) applyTemplate(meta, code string) error {
	if err := os.MkdirAll(meta, 0o755); err != nil {
		return err
	}
	for _, name := range templateMembers {
		dst := filepath.Join(meta, name)
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		src := filepath.Join(r.templatesDir, code, name)
		if !filex.Exists(src) {
			continue
		}
		if err := filex.CopyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repackager) pack(tree, out, modelName, code, cover string) (models.Variant, error) {
	name := modelName + "_" + code
	path := filepath.Join(out, filex.SanitizeName(name)+VariantExt)
	if err := Pack(tree, path, r.clock.Now()); err != nil {
		return models.Variant{}, fmt.Errorf("pack %s: %w", name, err)
	}
	return models.Variant{Name: name, PrinterCode: code, Path: path, CoverPath: cover}, nil
}
