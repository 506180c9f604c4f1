package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/pkg/lsa"
	"github.com/JaimeStill/book-search/pkg/pca"
	"github.com/JaimeStill/book-search/pkg/textproc"
)

// Build fits the document and image models for c concurrently.
func Build(ctx context.Context, c *catalog.Catalog, opts Options, logger *slog.Logger) (*Index, error) {
	var idx Index

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		m, err := buildDocuments(ctx, c, opts.DocumentComponents)
		if err != nil {
			return fmt.Errorf("document model: %w", err)
		}
		idx.Documents = m
		return nil
	})

	eg.Go(func() error {
		m, err := buildImages(ctx, c, opts, logger)
		switch {
		case errors.Is(err, pca.ErrNoSamples), errors.Is(err, pca.ErrNoRank):
			logger.Warn("image model unavailable", "error", err)
			return nil
		case err != nil:
			return fmt.Errorf("image model: %w", err)
		}
		idx.Images = m
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &idx, nil
}

func buildDocuments(ctx context.Context, c *catalog.Catalog, k int) (*lsa.Model, error) {
	books := c.Books()
	docs := make([][]string, len(books))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, b := range books {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := c.Text(b)
			if err != nil {
				return err
			}
			docs[i] = textproc.Preprocess(text)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return lsa.Fit(ctx, docs, k)
}

func buildImages(ctx context.Context, c *catalog.Catalog, opts Options, logger *slog.Logger) (*pca.Model, error) {
	var (
		names []string
		items []int
	)
	paths := c.CoverPaths()
	for _, b := range c.Books() {
		if b.Cover == "" {
			continue
		}
		names = append(names, paths[b.Position])
		items = append(items, b.Position)
	}

	pixels, skipped, err := pca.LoadFiles(ctx, c.FS(), names, opts.Shape)
	if err != nil {
		return nil, err
	}
	for _, e := range skipped {
		logger.Warn("cover skipped", "error", e)
	}

	samples := make([][]float32, 0, len(pixels))
	positions := make([]int, 0, len(pixels))
	for i, px := range pixels {
		if px == nil {
			continue
		}
		samples = append(samples, px)
		positions = append(positions, items[i])
	}

	return pca.Fit(ctx, samples, positions, opts.Shape, opts.ImageComponents)
}
