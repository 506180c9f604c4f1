package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/pkg/database"
	"github.com/JaimeStill/book-search/pkg/lifecycle"
	"github.com/JaimeStill/book-search/pkg/lsa"
	"github.com/JaimeStill/book-search/pkg/pagination"
	"github.com/JaimeStill/book-search/pkg/query"
	"github.com/JaimeStill/book-search/pkg/repository"
)

const upsertSQL = `
INSERT INTO public.books (id, position, title, cover, txt, synced_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (id) DO UPDATE SET
  position = EXCLUDED.position,
  title = EXCLUDED.title,
  cover = EXCLUDED.cover,
  txt = EXCLUDED.txt,
  synced_at = EXCLUDED.synced_at`

const pruneSQL = `DELETE FROM public.books WHERE NOT (id = ANY($1))`

type repo struct {
	db         database.System
	catalog    *catalog.Catalog
	index      index.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the book system over the catalog the index was built from.
func New(
	db database.System,
	idx index.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		catalog:    idx.Catalog(),
		index:      idx,
		logger:     logger.With("system", "books"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	if err := r.db.Migrate(lc.Context(), Migrations); err != nil {
		return fmt.Errorf("books migrations: %w", err)
	}

	lc.OnStartup(func() {
		if _, err := r.Sync(lc.Context()); err != nil {
			r.logger.Error("catalog sync failed", "error", err)
		}
	})
	return nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Book], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)
	qb.WhereContains("Title", page.Search)

	if sort := normalizeSort(page.Sort); len(sort) > 0 {
		qb.OrderByFields(sort)
	}

	db := r.db.Connection()

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	books, err := repository.QueryMany(ctx, db, pageSQL, pageArgs, scanBook)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}

	result := pagination.NewPageResult(books, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id string) (*Book, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	b, err := repository.QueryOne(ctx, r.db.Connection(), q, args, scanBook)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &b, nil
}

func (r *repo) Recommendations(ctx context.Context, id string, k int) ([]Recommendation, error) {
	if k < 1 {
		return nil, ErrInvalidTopK
	}

	book, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	idx, err := r.index.Current()
	if err != nil {
		return nil, err
	}

	scored, err := idx.Documents.Similar(book.Position, k)
	if err != nil {
		if errors.Is(err, lsa.ErrUnknownDoc) {
			return nil, fmt.Errorf("%w: %s is not indexed", ErrNotFound, id)
		}
		return nil, err
	}
	if len(scored) == 0 {
		return []Recommendation{}, nil
	}

	positions := make([]any, len(scored))
	for i, s := range scored {
		positions[i] = s.Index
	}

	qb := query.NewBuilder(projection, defaultSort).WhereIn("Position", positions)
	q, args := qb.BuildPage(1, len(positions))
	rows, err := repository.QueryMany(ctx, r.db.Connection(), q, args, scanBook)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}

	byPosition := make(map[int]Book, len(rows))
	for _, b := range rows {
		byPosition[b.Position] = b
	}

	recs := make([]Recommendation, 0, len(scored))
	for _, s := range scored {
		b, ok := byPosition[s.Index]
		if !ok {
			continue
		}
		recs = append(recs, Recommendation{
			ID:         b.ID,
			Title:      b.Title,
			Cover:      b.Cover,
			Similarity: s.Score,
		})
	}

	return recs, nil
}

func (r *repo) Sync(ctx context.Context) (SyncResult, error) {
	entries := r.catalog.Books()
	if len(entries) == 0 {
		return SyncResult{}, ErrCatalogEmpty
	}

	result, err := repository.WithTx(ctx, r.db.Connection(), func(tx *sql.Tx) (SyncResult, error) {
		var res SyncResult
		ids := make([]string, len(entries))

		for i, b := range entries {
			ids[i] = b.ID
			if _, err := tx.ExecContext(ctx, upsertSQL, b.ID, b.Position, b.Title, b.Cover, b.Txt); err != nil {
				return res, fmt.Errorf("upsert book %s: %w", b.ID, err)
			}
			res.Upserted++
		}

		removed, err := tx.ExecContext(ctx, pruneSQL, ids)
		if err != nil {
			return res, fmt.Errorf("prune books: %w", err)
		}
		res.Removed, _ = removed.RowsAffected()

		return res, nil
	})
	if err != nil {
		return SyncResult{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("catalog synced", "upserted", result.Upserted, "removed", result.Removed)
	return result, nil
}
