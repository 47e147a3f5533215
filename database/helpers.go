package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Transaction executes a function within a database transaction
func Transaction(ctx context.Context, db *DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	if db == nil {
		return fmt.Errorf("database instance not initialized")
	}

	return db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// Paginate applies pagination to a query builder and returns results with metadata.
// A limit below 1 returns every matching record as a single page.
func Paginate[T any](q *QueryBuilder[T], ctx context.Context, page, limit int) (*FindResult[T], error) {
	if page < 1 {
		page = 1
	}

	if limit < 1 {
		data, err := q.All(ctx)
		if err != nil {
			return nil, err
		}
		return newFindResult(data, len(data), 1, 0), nil
	}

	// Get total count
	total, err := q.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	// Get paginated data
	data, err := q.Limit(limit).Offset((page - 1) * limit).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get paginated data: %w", err)
	}

	return newFindResult(data, total, page, limit), nil
}

// BatchProcess pages through every record matching filter, calling fn once per batch
func BatchProcess[T any](ctx context.Context, store Store[T], filter Filter, opts FindOptions, fn func([]T) error) error {
	if opts.Limit < 1 {
		opts.Limit = 100
	}

	for page := 1; ; page++ {
		opts.Page = page
		batch, err := store.Find(ctx, filter, opts)
		if err != nil {
			return fmt.Errorf("failed to fetch batch at page %d: %w", page, err)
		}

		if len(batch.Docs) == 0 {
			break
		}

		if err := fn(batch.Docs); err != nil {
			return fmt.Errorf("batch processing failed at page %d: %w", page, err)
		}

		if !batch.HasNextPage {
			break
		}
	}

	return nil
}

func newFindResult[T any](docs []T, total, page, limit int) *FindResult[T] {
	if docs == nil {
		docs = []T{}
	}
	totalPages := 1
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
		if totalPages == 0 {
			totalPages = 1
		}
	}
	return &FindResult[T]{
		Docs:        docs,
		TotalDocs:   total,
		TotalPages:  totalPages,
		Page:        page,
		HasNextPage: limit > 0 && page*limit < total,
	}
}

// sqlValue adapts Go slices to Postgres arrays for SET clauses
func sqlValue(v any) any {
	switch v.(type) {
	case []string, []int, []int64:
		return pgdialect.Array(v)
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
