package database

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront_server/lib"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MemoryStore keeps records as JSON documents. It backs tests and STORE_DRIVER=memory.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	docs   map[string]string
	order  []string
	unique [][]string
}

type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	unique [][]string
}

// WithUniqueFields rejects two records sharing the same values for all of fields.
func WithUniqueFields(fields ...string) MemoryOption {
	return func(o *memoryOptions) {
		o.unique = append(o.unique, fields)
	}
}

func NewMemoryStore[T any](opts ...MemoryOption) *MemoryStore[T] {
	o := &memoryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &MemoryStore[T]{
		docs:   make(map[string]string),
		unique: o.unique,
	}
}

func (s *MemoryStore[T]) Find(ctx context.Context, filter Filter, opts FindOptions) (*FindResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]string, 0, len(s.order))
	for _, id := range s.order {
		doc := s.docs[id]
		if matchDoc(doc, filter) {
			matched = append(matched, doc)
		}
	}
	s.mu.RUnlock()

	if opts.Sort != "" {
		field, desc := strings.TrimPrefix(opts.Sort, "-"), strings.HasPrefix(opts.Sort, "-")
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareResults(gjson.Get(matched[i], field), gjson.Get(matched[j], field))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	total := len(matched)
	if opts.Limit > 0 {
		start := (page - 1) * opts.Limit
		if start > total {
			start = total
		}
		end := start + opts.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	} else {
		page = 1
	}

	docs := make([]T, 0, len(matched))
	for _, doc := range matched {
		if len(opts.Select) > 0 {
			doc = selectFields(doc, opts.Select)
		}
		rec, err := decodeDoc[T](doc)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *rec)
	}

	return newFindResult(docs, total, page, opts.Limit), nil
}

func (s *MemoryStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, lib.NewNotFoundError(fmt.Sprintf("record %s not found", id))
	}
	return decodeDoc[T](doc)
}

func (s *MemoryStore[T]) Create(ctx context.Context, record *T) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	doc := string(raw)
	id := gjson.Get(doc, "id").String()
	if id == "" {
		return nil, lib.NewValidationError("record id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; exists {
		return nil, lib.NewConflictError(fmt.Sprintf("record %s already exists", id))
	}
	if err := s.checkUnique(id, doc); err != nil {
		return nil, err
	}

	s.docs[id] = doc
	s.order = append(s.order, id)
	return decodeDoc[T](doc)
}

func (s *MemoryStore[T]) Update(ctx context.Context, id string, changes map[string]any) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, lib.NewNotFoundError(fmt.Sprintf("record %s not found", id))
	}

	updated, err := s.apply(id, doc, changes)
	if err != nil {
		return nil, err
	}
	s.docs[id] = updated
	return decodeDoc[T](updated)
}

func (s *MemoryStore[T]) UpdateWhere(ctx context.Context, filter Filter, changes map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[string]string)
	for _, id := range s.order {
		doc := s.docs[id]
		if !matchDoc(doc, filter) {
			continue
		}
		updated, err := s.apply(id, doc, changes)
		if err != nil {
			return 0, err
		}
		pending[id] = updated
	}

	for id, doc := range pending {
		s.docs[id] = doc
	}
	return len(pending), nil
}

func (s *MemoryStore[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return lib.NewNotFoundError(fmt.Sprintf("record %s not found", id))
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// apply sets every change on doc and checks the result still decodes into T. Caller holds the lock.
func (s *MemoryStore[T]) apply(id string, doc string, changes map[string]any) (string, error) {
	var err error
	for _, field := range sortedKeys(changes) {
		if field == "id" {
			return "", lib.NewValidationError("record id is immutable")
		}
		doc, err = sjson.Set(doc, field, changes[field])
		if err != nil {
			return "", fmt.Errorf("failed to set %s: %w", field, err)
		}
	}
	if _, err := decodeDoc[T](doc); err != nil {
		return "", lib.NewValidationError(fmt.Sprintf("invalid update: %v", err))
	}
	if err := s.checkUnique(id, doc); err != nil {
		return "", err
	}
	return doc, nil
}

func (s *MemoryStore[T]) checkUnique(id string, doc string) error {
	for _, fields := range s.unique {
		key, ok := uniqueKey(doc, fields)
		if !ok {
			continue
		}
		for otherID, other := range s.docs {
			if otherKey, _ := uniqueKey(other, fields); otherID != id && otherKey == key {
				return lib.NewConflictError(fmt.Sprintf("duplicate value for %s", strings.Join(fields, ", ")))
			}
		}
	}
	return nil
}

// uniqueKey reports false when a field is empty, like NULL in a unique index.
func uniqueKey(doc string, fields []string) (string, bool) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = gjson.Get(doc, f).String()
		if parts[i] == "" {
			return "", false
		}
	}
	return strings.Join(parts, "\x00"), true
}

func decodeDoc[T any](doc string) (*T, error) {
	var rec T
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}

func selectFields(doc string, fields []string) string {
	out := "{}"
	for _, f := range append([]string{"id"}, fields...) {
		res := gjson.Get(doc, f)
		if !res.Exists() {
			continue
		}
		out, _ = sjson.SetRaw(out, f, res.Raw)
	}
	return out
}

func matchDoc(doc string, f Filter) bool {
	switch f.Op {
	case "":
		return true
	case OpAnd:
		for _, c := range f.Children {
			if !matchDoc(doc, c) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range f.Children {
			if matchDoc(doc, c) {
				return true
			}
		}
		return false
	case OpEquals:
		return valueEquals(gjson.Get(doc, f.Field), f.Value)
	case OpNotEquals:
		return !valueEquals(gjson.Get(doc, f.Field), f.Value)
	case OpIn:
		res := gjson.Get(doc, f.Field)
		for _, v := range toSlice(f.Value) {
			if valueEquals(res, v) {
				return true
			}
		}
		return false
	case OpContains:
		res := gjson.Get(doc, f.Field)
		if !res.IsArray() {
			return false
		}
		for _, el := range res.Array() {
			if valueEquals(el, f.Value) {
				return true
			}
		}
		return false
	}
	return false
}

func valueEquals(res gjson.Result, v any) bool {
	if v == nil {
		return res.Type == gjson.Null
	}
	switch res.Type {
	case gjson.Null:
		return false
	case gjson.True, gjson.False:
		b, err := cast.ToBoolE(v)
		return err == nil && b == res.Bool()
	case gjson.Number:
		f, err := cast.ToFloat64E(v)
		if err == nil {
			return f == res.Float()
		}
		return res.String() == cast.ToString(v)
	case gjson.String:
		return res.String() == cast.ToString(v)
	}
	return false
}

func compareResults(a, b gjson.Result) int {
	if a.Type != b.Type {
		return int(a.Type) - int(b.Type)
	}
	switch a.Type {
	case gjson.Number:
		switch {
		case a.Float() < b.Float():
			return -1
		case a.Float() > b.Float():
			return 1
		}
		return 0
	case gjson.String:
		ta, errA := time.Parse(time.RFC3339Nano, a.String())
		tb, errB := time.Parse(time.RFC3339Nano, b.String())
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
		return strings.Compare(a.String(), b.String())
	}
	return 0
}

// toSlice flattens a slice or array value into []any. Other values become a single element.
func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if values, ok := v.([]any); ok {
		return values
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
