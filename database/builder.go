package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// QueryBuilder provides a fluent, type-safe API for building database queries
type QueryBuilder[T any] struct {
	db bun.IDB

	// Query clauses
	selectCols []string
	wheres     []*WhereClause
	orders     []*OrderClause
	limitVal   *int
	offsetVal  *int

	// Options
	forUpdate bool

	// Timeout
	timeout time.Duration
}

// WhereClause represents a WHERE condition
type WhereClause struct {
	Column   string
	Operator string
	Value    any
	IsRaw    bool
	RawSQL   string
	RawArgs  []any
	Negate   bool // For NOT conditions
}

// OrderClause represents an ORDER BY clause
type OrderClause struct {
	Column    string
	Direction string // "ASC" or "DESC"
}

// OrderDirection represents sort direction
type OrderDirection string

const (
	ASC  OrderDirection = "ASC"
	DESC OrderDirection = "DESC"
)

// Query creates a new QueryBuilder instance. db may be the connection or a transaction.
func Query[T any](db bun.IDB) *QueryBuilder[T] {
	return &QueryBuilder[T]{
		db:         db,
		selectCols: []string{},
		wheres:     []*WhereClause{},
		orders:     []*OrderClause{},
	}
}

// Select specifies the columns to select
func (q *QueryBuilder[T]) Select(columns ...string) *QueryBuilder[T] {
	q.selectCols = append(q.selectCols, columns...)
	return q
}

// Where adds a simple WHERE condition (column = value)
func (q *QueryBuilder[T]) Where(column string, value any) *QueryBuilder[T] {
	return q.WhereOp(column, "=", value)
}

// WhereOp adds a WHERE condition with a custom operator
func (q *QueryBuilder[T]) WhereOp(column, operator string, value any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		Column:   column,
		Operator: operator,
		Value:    value,
	})
	return q
}

// WhereNot adds a WHERE NOT condition
func (q *QueryBuilder[T]) WhereNot(column string, value any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		Column:   column,
		Operator: "=",
		Value:    value,
		Negate:   true,
	})
	return q
}

// WhereIn adds a WHERE IN condition
func (q *QueryBuilder[T]) WhereIn(column string, values []any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		Column:   column,
		Operator: "IN",
		Value:    bun.In(values),
	})
	return q
}

// WhereNull adds a WHERE IS NULL condition
func (q *QueryBuilder[T]) WhereNull(column string) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		Column:   column,
		Operator: "IS NULL",
	})
	return q
}

// WhereRaw adds a raw WHERE condition
func (q *QueryBuilder[T]) WhereRaw(sql string, args ...any) *QueryBuilder[T] {
	q.wheres = append(q.wheres, &WhereClause{
		IsRaw:   true,
		RawSQL:  sql,
		RawArgs: args,
	})
	return q
}

// WhereFilter adds a store filter tree as a single WHERE condition
func (q *QueryBuilder[T]) WhereFilter(f Filter) *QueryBuilder[T] {
	if f.IsZero() {
		return q
	}
	sql, args := f.SQL()
	return q.WhereRaw(sql, args...)
}

// OrderBy adds an ORDER BY clause
func (q *QueryBuilder[T]) OrderBy(column string, direction OrderDirection) *QueryBuilder[T] {
	q.orders = append(q.orders, &OrderClause{
		Column:    column,
		Direction: string(direction),
	})
	return q
}

// Sort adds an ORDER BY clause from a "column" or "-column" expression
func (q *QueryBuilder[T]) Sort(expr string) *QueryBuilder[T] {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return q
	}
	if strings.HasPrefix(expr, "-") {
		return q.OrderBy(strings.TrimPrefix(expr, "-"), DESC)
	}
	return q.OrderBy(expr, ASC)
}

// Limit sets the LIMIT clause
func (q *QueryBuilder[T]) Limit(limit int) *QueryBuilder[T] {
	q.limitVal = &limit
	return q
}

// Offset sets the OFFSET clause
func (q *QueryBuilder[T]) Offset(offset int) *QueryBuilder[T] {
	q.offsetVal = &offset
	return q
}

// ForUpdate adds FOR UPDATE clause (for row locking)
func (q *QueryBuilder[T]) ForUpdate() *QueryBuilder[T] {
	q.forUpdate = true
	return q
}

// Timeout sets a timeout for the query
func (q *QueryBuilder[T]) Timeout(duration time.Duration) *QueryBuilder[T] {
	q.timeout = duration
	return q
}

// whereConditions renders every WHERE clause as (sql, args) pairs
func (q *QueryBuilder[T]) whereConditions() []whereCondition {
	conditions := make([]whereCondition, 0, len(q.wheres))
	for _, where := range q.wheres {
		if where.IsRaw {
			conditions = append(conditions, whereCondition{sql: where.RawSQL, args: where.RawArgs})
			continue
		}

		if where.Operator == "IS NULL" || where.Operator == "IS NOT NULL" {
			conditions = append(conditions, whereCondition{
				sql:  fmt.Sprintf("? %s", where.Operator),
				args: []any{bun.Ident(where.Column)},
			})
			continue
		}

		condition := fmt.Sprintf("? %s (?)", where.Operator)
		if where.Operator != "IN" {
			condition = fmt.Sprintf("? %s ?", where.Operator)
		}
		if where.Negate {
			condition = "NOT (" + condition + ")"
		}
		conditions = append(conditions, whereCondition{
			sql:  condition,
			args: []any{bun.Ident(where.Column), where.Value},
		})
	}
	return conditions
}

type whereCondition struct {
	sql  string
	args []any
}

// buildBunQuery builds the SELECT query for the given model (a *T or *[]T)
func (q *QueryBuilder[T]) buildBunQuery(model any) *bun.SelectQuery {
	query := q.db.NewSelect().Model(model)

	for _, col := range q.selectCols {
		query = query.Column(col)
	}

	for _, cond := range q.whereConditions() {
		query = query.Where(cond.sql, cond.args...)
	}

	for _, order := range q.orders {
		query = query.OrderExpr("? "+order.Direction, bun.Ident(order.Column))
	}

	if q.limitVal != nil {
		query = query.Limit(*q.limitVal)
	}
	if q.offsetVal != nil {
		query = query.Offset(*q.offsetVal)
	}

	if q.forUpdate {
		query = query.For("UPDATE")
	}

	return query
}

// withTimeout applies the builder timeout to ctx
func (q *QueryBuilder[T]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}
