package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/JaimeStill/book-search/internal/catalog"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func open(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(context.Background(), "testdata/books", "mapper.json", discard)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return c
}

func TestOpen_PreservesManifestOrder(t *testing.T) {
	c := open(t)

	want := []string{"7", "3", "1"}
	books := c.Books()
	if len(books) != len(want) {
		t.Fatalf("Books() = %d entries, want %d", len(books), len(want))
	}
	for i, id := range want {
		if books[i].ID != id || books[i].Position != i {
			t.Errorf("Books()[%d] = %s@%d, want %s@%d", i, books[i].ID, books[i].Position, id, i)
		}
	}
}

func TestOpen_SkipsMissingAndIncomplete(t *testing.T) {
	c := open(t)

	for _, id := range []string{"9", "5"} {
		if _, ok := c.Lookup(id); ok {
			t.Errorf("Lookup(%s) found a skipped entry", id)
		}
	}
}

func TestLookupAndAt(t *testing.T) {
	c := open(t)

	b, ok := c.Lookup("1")
	if !ok || b.Title != "Baking Bread" || b.Position != 2 {
		t.Errorf("Lookup(1) = %+v, %v", b, ok)
	}

	if at, ok := c.At(0); !ok || at.ID != "7" {
		t.Errorf("At(0) = %+v, %v", at, ok)
	}
	if _, ok := c.At(3); ok {
		t.Error("At(3) out of range returned ok")
	}
}

func TestText(t *testing.T) {
	c := open(t)
	b, _ := c.Lookup("1")

	text, err := c.Text(b)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.Contains(text, "oven") {
		t.Errorf("Text() = %q", text)
	}
}

func TestCoverPaths(t *testing.T) {
	c := open(t)
	paths := c.CoverPaths()
	if paths[0] != "covers/7.png" || len(paths) != 3 {
		t.Errorf("CoverPaths() = %v", paths)
	}
}

func TestFingerprint(t *testing.T) {
	a := fstest.MapFS{
		"m.json":  {Data: []byte(`{"1": {"title": "A", "txt": "a.txt"}}`)},
		"a.txt":   {Data: []byte("a")},
		"m2.json": {Data: []byte(`{"1": {"title": "B", "txt": "a.txt"}}`)},
	}

	c1, err := catalog.Load(context.Background(), a, "m.json", discard)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c1again, _ := catalog.Load(context.Background(), a, "m.json", discard)
	c2, _ := catalog.Load(context.Background(), a, "m2.json", discard)

	if c1.Fingerprint() != c1again.Fingerprint() {
		t.Error("fingerprint is not stable")
	}
	if c1.Fingerprint() == c2.Fingerprint() {
		t.Error("fingerprint did not change with manifest content")
	}
}

func TestFingerprint_TracksFiles(t *testing.T) {
	manifest := []byte(`{"1": {"title": "A", "txt": "a.txt", "cover": "a.png"}}`)
	base := func() fstest.MapFS {
		return fstest.MapFS{
			"m.json": {Data: manifest},
			"a.txt":  {Data: []byte("call me ishmael"), ModTime: time.Unix(100, 0)},
			"a.png":  {Data: []byte("png"), ModTime: time.Unix(100, 0)},
		}
	}

	fingerprint := func(fsys fstest.MapFS) string {
		t.Helper()
		c, err := catalog.Load(context.Background(), fsys, "m.json", discard)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return c.Fingerprint()
	}

	want := fingerprint(base())

	tests := []struct {
		name   string
		modify func(fstest.MapFS)
	}{
		{"text rewritten", func(fsys fstest.MapFS) {
			fsys["a.txt"] = &fstest.MapFile{Data: []byte("call me ishmael, again"), ModTime: time.Unix(100, 0)}
		}},
		{"text touched", func(fsys fstest.MapFS) {
			fsys["a.txt"].ModTime = time.Unix(200, 0)
		}},
		{"cover replaced", func(fsys fstest.MapFS) {
			fsys["a.png"] = &fstest.MapFile{Data: []byte("jpeg!"), ModTime: time.Unix(300, 0)}
		}},
		{"cover removed", func(fsys fstest.MapFS) {
			delete(fsys, "a.png")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := base()
			tt.modify(fsys)
			if got := fingerprint(fsys); got == want {
				t.Error("fingerprint did not change")
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"array.json": {Data: []byte(`[1, 2]`)},
		"bad.json":   {Data: []byte(`{"1": `)},
		"empty.json": {Data: []byte(`{"1": {"title": "A", "txt": "missing.txt"}}`)},
	}

	tests := []struct {
		manifest string
		want     error
	}{
		{"array.json", catalog.ErrInvalidManifest},
		{"bad.json", catalog.ErrInvalidManifest},
		{"empty.json", catalog.ErrEmpty},
	}

	for _, tt := range tests {
		if _, err := catalog.Load(context.Background(), fsys, tt.manifest, discard); !errors.Is(err, tt.want) {
			t.Errorf("Load(%s) error = %v, want %v", tt.manifest, err, tt.want)
		}
	}

	if _, err := catalog.Load(context.Background(), fsys, "nope.json", discard); err == nil {
		t.Error("Load(missing manifest) expected error")
	}
}
