package index_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/pkg/lifecycle"
	"github.com/JaimeStill/book-search/pkg/pca"
	"github.com/JaimeStill/book-search/pkg/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var opts = index.Options{
	DocumentComponents: 10,
	ImageComponents:    3,
	Shape:              pca.Shape{Width: 4, Height: 6},
}

func cover(t *testing.T, level uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 12))
	for i := range img.Pix {
		img.Pix[i] = level + uint8(i%4)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	fsys := fstest.MapFS{
		"mapper.json": {Data: []byte(`{
			"a": {"title": "Whales", "cover": "covers/a.png", "txt": "a.txt"},
			"b": {"title": "Ships", "cover": "covers/b.png", "txt": "b.txt"},
			"c": {"title": "Bread", "cover": "covers/c.png", "txt": "c.txt"},
			"d": {"title": "Cakes", "cover": "", "txt": "d.txt"}
		}`)},
		"a.txt":        {Data: []byte("The whale swam through the sea past the ship.")},
		"b.txt":        {Data: []byte("A ship sails the ocean sea with sailors.")},
		"c.txt":        {Data: []byte("Bake bread with flour and sugar in the oven.")},
		"d.txt":        {Data: []byte("Sugar cake baked in a hot oven.")},
		"covers/a.png": {Data: cover(t, 10)},
		"covers/b.png": {Data: cover(t, 120)},
		"covers/c.png": {Data: cover(t, 240)},
	}

	c, err := catalog.Load(context.Background(), fsys, "mapper.json", discard)
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	return c
}

func testStore(t *testing.T) storage.System {
	t.Helper()
	cfg := &storage.Config{BasePath: t.TempDir()}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("storage config: %v", err)
	}
	store, err := storage.New(cfg, discard)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	return store
}

func TestBuild(t *testing.T) {
	c := testCatalog(t)

	idx, err := index.Build(context.Background(), c, opts, discard)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if idx.Documents.Docs != 4 {
		t.Errorf("Documents.Docs = %d, want 4", idx.Documents.Docs)
	}
	if idx.Images == nil {
		t.Fatal("Images is nil")
	}
	if idx.Images.Len() != 3 {
		t.Errorf("Images.Len() = %d, want 3 (book without cover skipped)", idx.Images.Len())
	}

	recs, err := idx.Documents.Similar(0, 1)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}
	if recs[0].Index != 1 {
		t.Errorf("Similar(whales) = book %d, want ships (1)", recs[0].Index)
	}
}

func TestLoad_CachesBuild(t *testing.T) {
	c := testCatalog(t)
	store := testStore(t)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	first := index.New(c, store, opts, discard, "test", reg)

	if _, err := first.Current(); !errors.Is(err, index.ErrNotReady) {
		t.Errorf("Current() before Load error = %v, want ErrNotReady", err)
	}

	if _, err := first.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	reg2 := prometheus.NewRegistry()
	second := index.New(c, store, opts, discard, "test", reg2)
	idx, err := second.Load(ctx, false)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if idx.Documents.Docs != 4 || idx.Images == nil {
		t.Errorf("cached index incomplete: %+v", idx)
	}

	if got := loads(t, reg2, "cache"); got != 1 {
		t.Errorf("cache loads = %v, want 1", got)
	}

	if _, err := second.Load(ctx, true); err != nil {
		t.Fatalf("forced Load() error = %v", err)
	}
	if got := loads(t, reg2, "build"); got != 1 {
		t.Errorf("forced build loads = %v, want 1", got)
	}
}

func TestLoad_DisableCache(t *testing.T) {
	c := testCatalog(t)
	store := testStore(t)
	ctx := context.Background()

	o := opts
	o.DisableCache = true
	sys := index.New(c, store, o, discard, "test", nil)

	if _, err := sys.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	reg := prometheus.NewRegistry()
	cached := index.New(c, store, opts, discard, "test", reg)
	if _, err := cached.Load(ctx, false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loads(t, reg, "build"); got != 1 {
		t.Errorf("build loads = %v, want 1 (nothing should have been cached)", got)
	}
}

type failingStore struct {
	storage.System
}

func (failingStore) Retrieve(context.Context, string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (failingStore) Store(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestSave_ReportsCacheWriteFailure(t *testing.T) {
	c := testCatalog(t)
	sys := index.New(c, failingStore{}, opts, discard, "test", nil)
	ctx := context.Background()

	for _, force := range []bool{false, true} {
		idx, err := sys.Save(ctx, force)
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("Save(force=%v) error = %v, want disk full", force, err)
		}
		if idx == nil {
			t.Errorf("Save(force=%v) returned no index", force)
		}
	}
	if _, err := sys.Current(); err != nil {
		t.Errorf("Current() after failed write error = %v", err)
	}

	if _, err := sys.Load(ctx, true); err != nil {
		t.Errorf("Load() error = %v, want cache write failure tolerated", err)
	}
}

func TestSave_CacheDisabled(t *testing.T) {
	o := opts
	o.DisableCache = true
	sys := index.New(testCatalog(t), testStore(t), o, discard, "test", nil)

	if _, err := sys.Save(context.Background(), false); !errors.Is(err, index.ErrCacheDisabled) {
		t.Errorf("Save() error = %v, want ErrCacheDisabled", err)
	}
}

func TestBuild_SkipsUndecodableCover(t *testing.T) {
	fsys := fstest.MapFS{
		"mapper.json": {Data: []byte(`{
			"a": {"title": "Whales", "cover": "covers/a.png", "txt": "a.txt"},
			"b": {"title": "Ships", "cover": "covers/b.png", "txt": "b.txt"},
			"c": {"title": "Bread", "cover": "covers/c.png", "txt": "c.txt"}
		}`)},
		"a.txt":        {Data: []byte("The whale swam through the sea.")},
		"b.txt":        {Data: []byte("A ship sails the ocean sea.")},
		"c.txt":        {Data: []byte("Bake bread with flour.")},
		"covers/a.png": {Data: cover(t, 10)},
		"covers/b.png": {Data: []byte("not an image")},
		"covers/c.png": {Data: cover(t, 240)},
	}
	c, err := catalog.Load(context.Background(), fsys, "mapper.json", discard)
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}

	o := opts
	o.ImageComponents = 1
	idx, err := index.Build(context.Background(), c, o, discard)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if idx.Documents.Docs != 3 {
		t.Errorf("Documents.Docs = %d, want 3", idx.Documents.Docs)
	}
	if idx.Images == nil {
		t.Fatal("Images is nil")
	}
	if idx.Images.Len() != 2 {
		t.Errorf("Images.Len() = %d, want 2 (corrupt cover skipped)", idx.Images.Len())
	}
}

func TestLoad_Metrics(t *testing.T) {
	c := testCatalog(t)
	reg := prometheus.NewRegistry()
	sys := index.New(c, testStore(t), opts, discard, "test", reg)

	if _, err := sys.Load(context.Background(), false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		want float64
	}{
		{"test_index_documents", 4},
		{"test_index_images", 3},
	}

	for _, tt := range tests {
		got, err := metricValue(reg, tt.name, nil)
		if err != nil {
			t.Fatalf("gather %s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStart(t *testing.T) {
	c := testCatalog(t)
	sys := index.New(c, testStore(t), opts, discard, "test", nil)

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("lifecycle not ready")
	}
	if _, err := sys.Current(); err != nil {
		t.Errorf("Current() after startup error = %v", err)
	}
	if sys.Catalog() != c {
		t.Error("Catalog() returned a different catalog")
	}
}

func metricValue(reg *prometheus.Registry, name string, labels map[string]string) (float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue(), nil
			}
			return m.GetCounter().GetValue(), nil
		}
	}
	return 0, errors.New("metric not found: " + name)
}

func loads(t *testing.T, reg *prometheus.Registry, source string) float64 {
	t.Helper()
	v, err := metricValue(reg, "test_index_loads_total", map[string]string{"source": source})
	if err != nil {
		t.Fatalf("loads(%s): %v", source, err)
	}
	return v
}
