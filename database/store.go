package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// Store is the record store contract shared by the bun and in-memory backends.
type Store[T any] interface {
	Find(ctx context.Context, filter Filter, opts FindOptions) (*FindResult[T], error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, record *T) (*T, error)
	Update(ctx context.Context, id string, changes map[string]any) (*T, error)
	// UpdateWhere applies changes to every record matching filter and reports how many matched.
	UpdateWhere(ctx context.Context, filter Filter, changes map[string]any) (int, error)
	Delete(ctx context.Context, id string) error
}

type FindOptions struct {
	Limit  int      // 0 returns every match
	Page   int      // 1-based
	Depth  int      // populate references when > 0, honoured by services
	Select []string // columns to load, empty loads all
	Sort   string   // "column" or "-column"
}

type FindResult[T any] struct {
	Docs        []T  `json:"docs"`
	HasNextPage bool `json:"hasNextPage"`
	TotalDocs   int  `json:"totalDocs"`
	TotalPages  int  `json:"totalPages"`
	Page        int  `json:"page"`
}

type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpIn        Operator = "in"
	OpContains  Operator = "contains" // array column holds the value
	OpAnd       Operator = "and"
	OpOr        Operator = "or"
)

// Filter is a predicate tree over record fields. Field names are column names,
// which are also the JSON keys of the table models.
type Filter struct {
	Field    string
	Op       Operator
	Value    any
	Children []Filter
}

func Equals(field string, value any) Filter {
	return Filter{Field: field, Op: OpEquals, Value: value}
}

func NotEquals(field string, value any) Filter {
	return Filter{Field: field, Op: OpNotEquals, Value: value}
}

// In matches when the field equals any of values. values must be a slice.
func In(field string, values any) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

func Contains(field string, value any) Filter {
	return Filter{Field: field, Op: OpContains, Value: value}
}

func And(filters ...Filter) Filter {
	return Filter{Op: OpAnd, Children: compact(filters)}
}

func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Children: compact(filters)}
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Op == "" || (f.Op == OpAnd && len(f.Children) == 0)
}

func (f Filter) String() string {
	switch f.Op {
	case OpAnd, OpOr:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+string(f.Op)+" ") + ")"
	case "":
		return "(all)"
	}
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// SQL renders the filter as a bun WHERE fragment with its arguments.
func (f Filter) SQL() (string, []any) {
	switch f.Op {
	case "":
		return "TRUE", nil
	case OpEquals:
		if f.Value == nil {
			return "? IS NULL", []any{bun.Ident(f.Field)}
		}
		return "? = ?", []any{bun.Ident(f.Field), f.Value}
	case OpNotEquals:
		if f.Value == nil {
			return "? IS NOT NULL", []any{bun.Ident(f.Field)}
		}
		return "? IS DISTINCT FROM ?", []any{bun.Ident(f.Field), f.Value}
	case OpIn:
		values := toSlice(f.Value)
		if len(values) == 0 {
			return "FALSE", nil
		}
		return "? IN (?)", []any{bun.Ident(f.Field), bun.In(values)}
	case OpContains:
		return "? = ANY(?)", []any{f.Value, bun.Ident(f.Field)}
	case OpAnd, OpOr:
		if len(f.Children) == 0 {
			if f.Op == OpAnd {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		parts := make([]string, 0, len(f.Children))
		var args []any
		for _, child := range f.Children {
			sql, childArgs := child.SQL()
			parts = append(parts, sql)
			args = append(args, childArgs...)
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(f.Op))+" ") + ")", args
	}
	return "FALSE", nil
}

func compact(filters []Filter) []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f.Op == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
