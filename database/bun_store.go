package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_server/lib"

	"github.com/uptrace/bun"
)

// BunStore implements Store on top of the generic QueryBuilder.
type BunStore[T any] struct {
	db      bun.IDB
	timeout time.Duration
}

func NewBunStore[T any](db bun.IDB, timeout time.Duration) *BunStore[T] {
	return &BunStore[T]{db: db, timeout: timeout}
}

func (s *BunStore[T]) query() *QueryBuilder[T] {
	return Query[T](s.db).Timeout(s.timeout)
}

func (s *BunStore[T]) Find(ctx context.Context, filter Filter, opts FindOptions) (*FindResult[T], error) {
	q := s.query().WhereFilter(filter).Sort(opts.Sort)
	if len(opts.Select) > 0 {
		q = q.Select(append([]string{"id"}, opts.Select...)...)
	}

	result, err := Paginate(q, ctx, opts.Page, opts.Limit)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	return result, nil
}

func (s *BunStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	record, err := s.query().Where("id", id).First(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	if record == nil {
		return nil, lib.NewNotFoundError(fmt.Sprintf("record %s not found", id))
	}
	return record, nil
}

func (s *BunStore[T]) Create(ctx context.Context, record *T) (*T, error) {
	created, err := s.query().Insert(ctx, record)
	if err != nil {
		err = lib.MapPgError(err)
		if errors.Is(err, lib.ErrConflict) {
			return nil, &lib.AppError{Kind: lib.ErrConflict, Message: "record already exists", Err: err}
		}
		return nil, err
	}
	return created, nil
}

func (s *BunStore[T]) Update(ctx context.Context, id string, changes map[string]any) (*T, error) {
	if _, ok := changes["id"]; ok {
		return nil, lib.NewValidationError("record id is immutable")
	}

	updated, err := s.query().Where("id", id).UpdateReturning(ctx, changes)
	if err != nil {
		err = lib.MapPgError(err)
		if errors.Is(err, lib.ErrConflict) {
			return nil, &lib.AppError{Kind: lib.ErrConflict, Message: "update violates a unique constraint", Err: err}
		}
		return nil, err
	}
	if len(updated) == 0 {
		return nil, lib.NewNotFoundError(fmt.Sprintf("record %s not found", id))
	}
	return &updated[0], nil
}

func (s *BunStore[T]) UpdateWhere(ctx context.Context, filter Filter, changes map[string]any) (int, error) {
	n, err := s.query().WhereFilter(filter).Update(ctx, changes)
	if err != nil {
		return 0, lib.MapPgError(err)
	}
	return n, nil
}

func (s *BunStore[T]) Delete(ctx context.Context, id string) error {
	n, err := s.query().Where("id", id).Delete(ctx)
	if err != nil {
		return lib.MapPgError(err)
	}
	if n == 0 {
		return lib.NewNotFoundError(fmt.Sprintf("record %s not found", id))
	}
	return nil
}
