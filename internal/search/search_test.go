package search_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/JaimeStill/book-search/internal/books"
	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/internal/search"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/pca"
	"github.com/JaimeStill/book-search/pkg/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

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

type fixture struct {
	covers map[string][]byte
	index  index.System
}

func newFixture(t *testing.T, load bool) fixture {
	t.Helper()

	covers := map[string][]byte{
		"a": cover(t, 10),
		"b": cover(t, 120),
		"c": cover(t, 240),
	}

	fsys := fstest.MapFS{
		"mapper.json": {Data: []byte(`{
			"a": {"title": "Whales", "cover": "covers/a.png", "txt": "a.txt"},
			"b": {"title": "Ships", "cover": "covers/b.png", "txt": "b.txt"},
			"c": {"title": "Bread", "cover": "covers/c.png", "txt": "c.txt"}
		}`)},
		"a.txt":        {Data: []byte("The whale swam through the sea. Whales hunt in the deep sea.")},
		"b.txt":        {Data: []byte("A ship sails the ocean with sailors on deck.")},
		"c.txt":        {Data: []byte("Bake bread with flour and sugar in the oven.")},
		"covers/a.png": {Data: covers["a"]},
		"covers/b.png": {Data: covers["b"]},
		"covers/c.png": {Data: covers["c"]},
	}

	c, err := catalog.Load(context.Background(), fsys, "mapper.json", discard)
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}

	cfg := &storage.Config{BasePath: t.TempDir()}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("storage config: %v", err)
	}
	store, err := storage.New(cfg, discard)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	opts := index.Options{
		DocumentComponents: 10,
		ImageComponents:    3,
		Shape:              pca.Shape{Width: 4, Height: 6},
		DisableCache:       true,
	}
	idx := index.New(c, store, opts, discard, "test", nil)
	if load {
		if _, err := idx.Load(context.Background(), false); err != nil {
			t.Fatalf("index Load() error = %v", err)
		}
	}

	return fixture{covers: covers, index: idx}
}

func newSystem(t *testing.T, f fixture, opts search.Options) search.System {
	t.Helper()
	if opts.MaxUploadSize == 0 {
		opts.MaxUploadSize = 1 << 20
	}
	sys, err := search.New(f.index, discard, opts)
	if err != nil {
		t.Fatalf("search.New() error = %v", err)
	}
	return sys
}

func TestImage_ExactCover(t *testing.T) {
	f := newFixture(t, true)
	sys := newSystem(t, f, search.Options{})

	results, err := sys.Image(context.Background(), f.covers["b"], 2)
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != "b" || results[0].Similarity != 1 {
		t.Errorf("results[0] = %+v, want b with similarity 1", results[0])
	}
	if results[0].Cover != "covers/b.png" {
		t.Errorf("cover = %q", results[0].Cover)
	}
}

func TestImage_Errors(t *testing.T) {
	f := newFixture(t, true)
	sys := newSystem(t, f, search.Options{})

	tests := []struct {
		name string
		data []byte
		k    int
		want error
	}{
		{"text upload", []byte("just some words"), 5, search.ErrUnsupportedMedia},
		{"truncated png", f.covers["a"][:40], 5, search.ErrInvalidImage},
		{"zero k", f.covers["a"], 0, books.ErrInvalidTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Image(context.Background(), tt.data, tt.k)
			if !errors.Is(err, tt.want) {
				t.Errorf("Image() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	f := newFixture(t, true)
	sys := newSystem(t, f, search.Options{})

	results, err := sys.Document(context.Background(), "whales in the sea", 3)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if len(results) == 0 || results[0].ID != "a" {
		t.Fatalf("results = %+v, want a first", results)
	}

	again, err := sys.Document(context.Background(), "Whale sea!", 3)
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if len(again) != len(results) || again[0] != results[0] {
		t.Errorf("stemmed query returned %+v, want %+v", again, results)
	}
}

func TestDocument_Errors(t *testing.T) {
	f := newFixture(t, true)
	sys := newSystem(t, f, search.Options{})

	if _, err := sys.Document(context.Background(), " \n\t", 5); !errors.Is(err, search.ErrEmptyQuery) {
		t.Errorf("blank query: error = %v, want ErrEmptyQuery", err)
	}

	stop, err := sys.Document(context.Background(), "the and of", 5)
	if err != nil {
		t.Fatalf("stop words only: error = %v", err)
	}
	if stop == nil || len(stop) != 0 {
		t.Errorf("stop words only: results = %#v, want empty", stop)
	}

	results, err := sys.Document(context.Background(), "zebra", 5)
	if err != nil {
		t.Fatalf("unknown term: error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("unknown term: results = %+v, want none", results)
	}
}

func TestNotReady(t *testing.T) {
	f := newFixture(t, false)
	sys := newSystem(t, f, search.Options{})

	if _, err := sys.Document(context.Background(), "whale", 5); !errors.Is(err, index.ErrNotReady) {
		t.Errorf("Document() error = %v, want ErrNotReady", err)
	}
	if _, err := sys.Image(context.Background(), f.covers["a"], 5); !errors.Is(err, index.ErrNotReady) {
		t.Errorf("Image() error = %v, want ErrNotReady", err)
	}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	} else {
		mw.WriteField("note", "no file")
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func serve(sys search.System) *httptest.Server {
	mux := http.NewServeMux()
	for _, r := range sys.Handler().Routes().Routes {
		mux.HandleFunc(r.Method+" /search"+r.Pattern, r.Handler)
	}
	return httptest.NewServer(mux)
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body["error"]
}

func TestHandler_Image(t *testing.T) {
	f := newFixture(t, true)
	srv := serve(newSystem(t, f, search.Options{MaxUploadSize: 4096}))
	defer srv.Close()

	big := bytes.Repeat([]byte{0xff}, 8192)

	tests := []struct {
		name     string
		field    string
		filename string
		data     []byte
		status   int
		errMsg   string
	}{
		{"match", "image", "b.png", f.covers["b"], http.StatusOK, ""},
		{"missing field", "", "", nil, http.StatusBadRequest, "no image file"},
		{"wrong field", "file", "b.png", f.covers["b"], http.StatusBadRequest, "no image file"},
		{"empty filename", "image", "", f.covers["b"], http.StatusBadRequest, "no image file"},
		{"too large", "image", "big.png", big, http.StatusRequestEntityTooLarge, "upload exceeds size limit"},
		{"not an image", "image", "notes.txt", []byte("plain words"), http.StatusUnsupportedMediaType, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.field, tt.filename, tt.data)
			resp, err := http.Post(srv.URL+"/search/image", ct, body)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.errMsg != "" {
				if got := decodeError(t, resp); got != tt.errMsg {
					t.Errorf("error = %q, want %q", got, tt.errMsg)
				}
			}
			if tt.status == http.StatusOK {
				var out struct {
					Results []books.Recommendation `json:"results"`
				}
				if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
					t.Fatal(err)
				}
				if len(out.Results) != 3 || out.Results[0].ID != "b" {
					t.Errorf("results = %+v", out.Results)
				}
			}
		})
	}
}

func TestHandler_Document(t *testing.T) {
	f := newFixture(t, true)
	srv := serve(newSystem(t, f, search.Options{}))
	defer srv.Close()

	t.Run("json", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/search/document", "application/json",
			strings.NewReader(`{"query": "bread and sugar", "top_k": 1}`))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var out struct {
			Results []books.Recommendation `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if len(out.Results) != 1 || out.Results[0].ID != "c" {
			t.Errorf("results = %+v, want [c]", out.Results)
		}
	})

	t.Run("multipart", func(t *testing.T) {
		body, ct := multipartBody(t, "document", "query.txt", []byte("ship sailors ocean"))
		resp, err := http.Post(srv.URL+"/search/document", ct, body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var out struct {
			Results []books.Recommendation `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if len(out.Results) == 0 || out.Results[0].ID != "b" {
			t.Errorf("results = %+v, want b first", out.Results)
		}
	})

	tests := []struct {
		name   string
		ct     string
		body   string
		status int
	}{
		{"empty body", "application/json", "", http.StatusBadRequest},
		{"blank query", "application/json", `{"query": "  "}`, http.StatusBadRequest},
		{"negative top_k", "application/json", `{"query": "whale", "top_k": -2}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/search/document", tt.ct, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}

	t.Run("stop words only", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/search/document", "application/json",
			strings.NewReader(`{"query": "the of and"}`))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(body), `"results":[]`) {
			t.Errorf("body = %s, want empty results array", body)
		}
	})

	t.Run("binary document", func(t *testing.T) {
		body, ct := multipartBody(t, "document", "cover.png", f.covers["a"])
		resp, err := http.Post(srv.URL+"/search/document", ct, body)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", resp.StatusCode)
		}
	})
}

func TestHandler_RateLimited(t *testing.T) {
	f := newFixture(t, true)
	cfg := &middleware.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, ClientTTL: "1m"}
	srv := serve(newSystem(t, f, search.Options{Limiter: middleware.NewLimiter(cfg)}))
	defer srv.Close()

	statuses := make([]int, 0, 2)
	for range 2 {
		resp, err := http.Post(srv.URL+"/search/document", "application/json",
			strings.NewReader(`{"query": "whale"}`))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [200 429]", statuses)
	}
}
