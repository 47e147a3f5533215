package lib

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxIdentifierDepth bounds how many wrappers (pointers, maps, references) are unwrapped.
const maxIdentifierDepth = 5

// Identifier is the canonical, comparable form of a record id. The zero value is the empty identifier.
type Identifier struct {
	value string
}

// Identifiable is implemented by records that can stand in for their own id.
type Identifiable interface {
	Identity() any
}

// ParseIdentifier canonicalizes any supported id representation. Unresolvable input yields the empty identifier.
func ParseIdentifier(v any) (id Identifier) {
	defer func() {
		if recover() != nil {
			id = Identifier{}
		}
	}()
	return Identifier{value: normalizeIdentity(v, 0)}
}

// NormalizeID is a shorthand for ParseIdentifier(v).String().
func NormalizeID(v any) string {
	return ParseIdentifier(v).String()
}

// SameIdentity reports whether a and b resolve to the same non-empty identifier.
func SameIdentity(a, b any) bool {
	return ParseIdentifier(a).Equal(ParseIdentifier(b))
}

// ContainsIdentity reports whether any element of list resolves to the same identifier as id.
func ContainsIdentity[T any](list []T, id any) bool {
	target := ParseIdentifier(id)
	if target.IsEmpty() {
		return false
	}
	for _, item := range list {
		if target.Equal(ParseIdentifier(item)) {
			return true
		}
	}
	return false
}

// NormalizeIDs canonicalizes values, dropping empties and duplicates while keeping the first occurrence order.
func NormalizeIDs[T any](values []T) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		id := NormalizeID(v)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (id Identifier) String() string {
	return id.value
}

func (id Identifier) IsEmpty() bool {
	return id.value == ""
}

func (id Identifier) Equal(other Identifier) bool {
	return id.value != "" && id.value == other.value
}

// Int returns the integer form for integer keyed backends.
func (id Identifier) Int() (int64, bool) {
	n, err := strconv.ParseInt(id.value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (id Identifier) MarshalJSON() ([]byte, error) {
	if id.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

func (id *Identifier) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*id = ParseIdentifier(raw)
	return nil
}

func normalizeIdentity(v any, depth int) string {
	if depth > maxIdentifierDepth || v == nil {
		return ""
	}

	switch t := v.(type) {
	case Identifier:
		return t.value
	case string:
		return normalizeIdentityString(t)
	case bool:
		return ""
	case json.Number:
		return normalizeIdentityString(t.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToString(t)
	case float32, float64:
		return normalizeIdentityFloat(cast.ToFloat64(t))
	case []byte:
		if len(t) == 0 {
			return ""
		}
		if len(t) == 12 {
			var oid primitive.ObjectID
			copy(oid[:], t)
			return oid.Hex()
		}
		return hex.EncodeToString(t)
	case primitive.ObjectID:
		if t.IsZero() {
			return ""
		}
		return t.Hex()
	case uuid.UUID:
		if t == uuid.Nil {
			return ""
		}
		return t.String()
	case map[string]any:
		if inner, ok := t["id"]; ok {
			return normalizeIdentity(inner, depth+1)
		}
		if inner, ok := t["_id"]; ok {
			return normalizeIdentity(inner, depth+1)
		}
		return ""
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		if ref, ok := v.(Identifiable); ok {
			return normalizeIdentity(ref.Identity(), depth+1)
		}
		return normalizeIdentity(rv.Elem().Interface(), depth+1)
	}

	if ref, ok := v.(Identifiable); ok {
		return normalizeIdentity(ref.Identity(), depth+1)
	}
	return ""
}

func normalizeIdentityString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if len(s) == 24 {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid.Hex()
		}
	}

	if len(s) == 36 {
		if u, err := uuid.Parse(s); err == nil {
			return u.String()
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}

	return s
}

func normalizeIdentityFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
