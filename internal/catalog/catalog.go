// Package catalog loads the book dataset manifest. The manifest is a JSON
// object keyed by book id; the order of its entries defines each book's
// position in the similarity models.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/gjson"
)

var (
	ErrInvalidManifest = errors.New("catalog: manifest must be a JSON object")
	ErrEmpty           = errors.New("catalog: no books with readable text")
)

// Book is one manifest entry. Cover and Txt are slash-separated paths
// relative to the dataset directory.
type Book struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Title    string `json:"title"`
	Cover    string `json:"cover"`
	Txt      string `json:"txt"`
}

// Catalog is the immutable, ordered set of books loaded from a manifest.
type Catalog struct {
	fsys        fs.FS
	books       []Book
	byID        map[string]int
	fingerprint string
}

// Open loads the manifest at dir/manifest.
func Open(ctx context.Context, dir, manifest string, logger *slog.Logger) (*Catalog, error) {
	return Load(ctx, os.DirFS(dir), manifest, logger)
}

// Load reads manifest from fsys. Entries whose text file does not exist are
// skipped with a warning; entries missing a title or text path are skipped
// likewise.
func Load(ctx context.Context, fsys fs.FS, manifest string, logger *slog.Logger) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidManifest
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrInvalidManifest
	}

	c := &Catalog{
		fsys: fsys,
		byID: make(map[string]int),
	}

	digest := xxhash.New()
	digest.Write(data)

	root.ForEach(func(key, value gjson.Result) bool {
		if ctx.Err() != nil {
			return false
		}

		b := Book{
			ID:    key.String(),
			Title: value.Get("title").String(),
			Cover: value.Get("cover").String(),
			Txt:   value.Get("txt").String(),
		}

		if b.Title == "" || b.Txt == "" {
			logger.Warn("skipping incomplete manifest entry", "id", b.ID)
			return true
		}
		if _, dup := c.byID[b.ID]; dup {
			logger.Warn("skipping duplicate manifest entry", "id", b.ID)
			return true
		}
		info, err := fs.Stat(fsys, clean(b.Txt))
		if err != nil {
			logger.Warn("text file not found", "id", b.ID, "txt", b.Txt)
			return true
		}
		writeStat(digest, b.Txt, info)
		if b.Cover != "" {
			info, _ := fs.Stat(fsys, clean(b.Cover))
			writeStat(digest, b.Cover, info)
		}

		b.Position = len(c.books)
		c.byID[b.ID] = b.Position
		c.books = append(c.books, b)
		return true
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.books) == 0 {
		return nil, ErrEmpty
	}
	c.fingerprint = strconv.FormatUint(digest.Sum64(), 16)

	logger.Info("catalog loaded", "books", len(c.books), "fingerprint", c.fingerprint)
	return c, nil
}

// Len returns the number of books.
func (c *Catalog) Len() int { return len(c.books) }

// Books returns a copy of the books in position order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

// At returns the book at position i.
func (c *Catalog) At(i int) (Book, bool) {
	if i < 0 || i >= len(c.books) {
		return Book{}, false
	}
	return c.books[i], true
}

// Lookup finds a book by id.
func (c *Catalog) Lookup(id string) (Book, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// Fingerprint identifies the manifest content together with the name, size
// and modification time of every referenced text and cover file.
func (c *Catalog) Fingerprint() string { return c.fingerprint }

// FS returns the dataset file system.
func (c *Catalog) FS() fs.FS { return c.fsys }

// Text reads the full text of b.
func (c *Catalog) Text(b Book) (string, error) {
	data, err := fs.ReadFile(c.fsys, clean(b.Txt))
	if err != nil {
		return "", fmt.Errorf("read text %s: %w", b.ID, err)
	}
	return string(data), nil
}

// CoverPaths returns each book's cover path in position order.
func (c *Catalog) CoverPaths() []string {
	out := make([]string, len(c.books))
	for i, b := range c.books {
		out[i] = clean(b.Cover)
	}
	return out
}

// writeStat folds a file's identity into the fingerprint. A nil info marks
// a missing file.
func writeStat(w io.Writer, name string, info fs.FileInfo) {
	if info == nil {
		fmt.Fprintf(w, "%s\x00-\n", name)
		return
	}
	fmt.Fprintf(w, "%s\x00%d\x00%d\n", name, info.Size(), info.ModTime().UnixNano())
}

// clean converts a manifest path into an fs.FS name.
func clean(p string) string {
	p = path.Clean("/" + p)
	return p[1:]
}
