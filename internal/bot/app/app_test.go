package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/profilebot/internal/bot/catalog"
	"github.com/dmitrijs2005/profilebot/internal/bot/config"
	"github.com/dmitrijs2005/profilebot/internal/bot/metrics"
	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/bot/repositories/items"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	pages     map[int][]models.ModelInfo
	pageErr   map[int]error
	files     map[string][]models.Model3MFInfo
	urls      map[string]string
	queried   []catalog.TrendQuery
	downloads []string
}

func (f *fakeCatalog) ListTrending(_ context.Context, q catalog.TrendQuery) ([]models.ModelInfo, error) {
	f.queried = append(f.queried, q)
	if err := f.pageErr[q.Page]; err != nil {
		return nil, err
	}
	return f.pages[q.Page], nil
}

func (f *fakeCatalog) List3MF(_ context.Context, groupID string) ([]models.Model3MFInfo, error) {
	return f.files[groupID], nil
}

func (f *fakeCatalog) DownloadURL(_ context.Context, fileID string) (string, error) {
	u, ok := f.urls[fileID]
	if !ok {
		return "", catalog.ErrNoDownloadURL
	}
	return u, nil
}

func (f *fakeCatalog) Download(_ context.Context, url, dst string) (int64, error) {
	f.downloads = append(f.downloads, url)
	return 3, os.WriteFile(dst, []byte("zip"), 0o644)
}

type fakeRepackager struct {
	sources []string
	existed []bool
	err     error
}

func (f *fakeRepackager) Repackage(_ context.Context, name, src string) (*models.Batch, error) {
	f.sources = append(f.sources, src)
	_, err := os.Stat(src)
	f.existed = append(f.existed, err == nil)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Batch{ModelName: name, Dir: filepath.Join(filepath.Dir(src), name)}, nil
}

type fakeUploader struct {
	groups []string
	sums   map[string]models.Summary
	errs   map[string]error
}

func (f *fakeUploader) UploadBatch(_ context.Context, b models.Batch, groupID string) (models.Summary, error) {
	f.groups = append(f.groups, groupID)
	return f.sums[groupID], f.errs[groupID]
}

type fixture struct {
	cfg     *config.Config
	catalog *fakeCatalog
	repack  *fakeRepackager
	upload  *fakeUploader
	items   *items.JSONRepository
	prom    *metrics.Prom
	app     *App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.CatalogPath = filepath.Join(dir, "models_db.json")
	cfg.MaxPages = 3

	repo, err := items.OpenJSON(cfg.CatalogPath, logging.Nop())
	require.NoError(t, err)

	f := &fixture{
		cfg: cfg,
		catalog: &fakeCatalog{
			pages:   map[int][]models.ModelInfo{},
			pageErr: map[int]error{},
			files:   map[string][]models.Model3MFInfo{},
			urls:    map[string]string{},
		},
		repack: &fakeRepackager{},
		upload: &fakeUploader{sums: map[string]models.Summary{}, errs: map[string]error{}},
		items:  repo,
		prom:   metrics.NewProm(),
	}
	f.app = &App{
		config:     cfg,
		logger:     logging.Nop(),
		clock:      clock.NewFake(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)),
		catalog:    f.catalog,
		items:      repo,
		repackager: f.repack,
		uploader:   f.upload,
		metrics:    f.prom,
	}
	return f
}

// sellable registers a downloadable item with a single container.
func (f *fixture) sellable(name, id string) models.ModelInfo {
	fileID := "file-" + id
	f.catalog.files[id] = []models.Model3MFInfo{{ID: fileID, Name: name + ".3mf"}, {ID: "other"}}
	f.catalog.urls[fileID] = "https://dl.example/" + id
	return models.ModelInfo{ID: id, Name: name, IsFree: true}
}

func TestDiscover_NewItemsSortedAndPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.items.Add(ctx, items.NewItem("Known", "k", true)))

	f.catalog.pages[1] = []models.ModelInfo{{ID: "2", Name: "Zebra"}, {ID: "k", Name: "Known"}, {ID: "", Name: "NoID"}}
	f.catalog.pages[2] = []models.ModelInfo{{ID: "1", Name: "Apple"}, {ID: "2", Name: "Zebra"}}
	f.catalog.pages[3] = []models.ModelInfo{{ID: "3", Name: "Mango"}}

	names, err := f.app.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Mango", "Zebra"}, names)

	require.Len(t, f.catalog.queried, 3)
	assert.Equal(t, catalog.FreeTrending(2, f.cfg.PageSize), f.catalog.queried[1])

	reopened, err := items.OpenJSON(f.cfg.CatalogPath, nil)
	require.NoError(t, err)
	it, err := reopened.Get(ctx, "Apple")
	require.NoError(t, err)
	assert.Equal(t, items.NewItem("Apple", "1", false), it)
	_, err = reopened.Get(ctx, "NoID")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDiscover_PageErrorStopsWalk(t *testing.T) {
	f := newFixture(t)
	f.catalog.pages[1] = []models.ModelInfo{{ID: "1", Name: "A"}}
	f.catalog.pageErr[2] = errors.New("HTTP 502")
	f.catalog.pages[3] = []models.ModelInfo{{ID: "3", Name: "C"}}

	names, err := f.app.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names)
	assert.Len(t, f.catalog.queried, 2)
}

func TestDiscover_EmptyPageStopsWalk(t *testing.T) {
	f := newFixture(t)
	f.catalog.pages[1] = []models.ModelInfo{{ID: "1", Name: "A"}}

	_, err := f.app.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.catalog.queried, 2)
}

func TestDiscover_NothingNewReturnsUnvisited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.items.Add(ctx, items.NewItem("b", "2", false)))
	require.NoError(t, f.items.Add(ctx, items.NewItem("a", "1", false)))
	require.NoError(t, f.items.Add(ctx, items.NewItem("done", "3", true)))
	f.catalog.pages[1] = []models.ModelInfo{{ID: "3", Name: "done"}}

	names, err := f.app.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestDiscover_MissingModelTokenIsFatal(t *testing.T) {
	f := newFixture(t)
	f.catalog.pageErr[1] = common.ErrNoModelToken

	_, err := f.app.Discover(context.Background())
	require.ErrorIs(t, err, common.ErrNoModelToken)
}

func TestRun_ProcessesItemsAndReports(t *testing.T) {
	f := newFixture(t)
	f.cfg.MetricsTextfile = filepath.Join(t.TempDir(), "profilebot.prom")
	f.catalog.pages[1] = []models.ModelInfo{f.sellable("Benchy", "g1"), f.sellable("Vase", "g2"), {ID: "g3", Name: "Empty"}}
	f.upload.sums["g1"] = models.Summary{Succeeded: 3, Cleaned: true}
	f.upload.sums["g2"] = models.Summary{Succeeded: 1, Failed: 2}

	rep, err := f.app.Run(context.Background())
	require.NoError(t, err)

	want := Report{Discovered: 3, Processed: 2, Repackaged: 2, Uploaded: 4, Errors: 3}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"g1", "g2"}, f.upload.groups, "variants are registered under the source item")
	assert.Equal(t, []string{"https://dl.example/g1", "https://dl.example/g2"}, f.catalog.downloads)
	assert.Equal(t, []bool{true, true}, f.repack.existed)
	for _, src := range f.repack.sources {
		assert.NoFileExists(t, src, "download is removed after the batch")
	}

	ctx := context.Background()
	for name, visited := range map[string]bool{"Benchy": true, "Vase": true, "Empty": false} {
		it, err := f.items.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, visited, it.Visited, name)
	}

	assert.FileExists(t, f.cfg.MetricsTextfile)
	data, err := os.ReadFile(f.cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `profilebot_items_total{outcome="ok"} 1`)
	assert.Contains(t, string(data), `profilebot_items_total{outcome="failed"} 2`)
}

func TestRun_MissingModelTokenAborts(t *testing.T) {
	f := newFixture(t)
	f.catalog.pages[1] = []models.ModelInfo{f.sellable("A", "g1"), f.sellable("B", "g2")}
	f.upload.errs["g1"] = fmt.Errorf("store: %w", common.ErrNoModelToken)

	rep, err := f.app.Run(context.Background())
	require.ErrorIs(t, err, common.ErrNoModelToken)
	assert.Equal(t, []string{"g1"}, f.upload.groups)
	assert.Equal(t, 2, rep.Discovered)
}

func TestRun_RepackageFailureIsCounted(t *testing.T) {
	f := newFixture(t)
	f.catalog.pages[1] = []models.ModelInfo{f.sellable("A", "g1")}
	f.repack.err = errors.New("not a zip")

	rep, err := f.app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Discovered: 1, Errors: 1}, rep)
	assert.Empty(t, f.upload.groups)
	assert.NoFileExists(t, f.repack.sources[0])
}

func TestRun_DryRunSkipsUploadAndKeepsItemUnvisited(t *testing.T) {
	f := newFixture(t)
	f.cfg.DryRun = true
	f.catalog.pages[1] = []models.ModelInfo{f.sellable("A", "g1")}

	rep, err := f.app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Discovered: 1, Repackaged: 1}, rep)
	assert.Empty(t, f.upload.groups)

	it, err := f.items.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, it.Visited)
}

func TestRun_NothingToProcess(t *testing.T) {
	f := newFixture(t)

	rep, err := f.app.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, rep)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.catalog.pages[1] = []models.ModelInfo{f.sellable("A", "g1")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.app.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.upload.groups)
}
