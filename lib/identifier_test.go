package lib

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRecord struct {
	ID any
}

func (f fakeRecord) Identity() any { return f.ID }

func TestParseIdentifier_IntegerForms(t *testing.T) {
	want := "42"
	inputs := []any{42, int64(42), uint16(42), 42.0, float32(42), "42", " 42 ", "0042", json.Number("42")}
	for _, in := range inputs {
		assert.Equal(t, want, ParseIdentifier(in).String(), "input %#v", in)
	}
}

func TestParseIdentifier_ObjectIDForms(t *testing.T) {
	oid := primitive.NewObjectID()
	want := oid.Hex()

	raw, err := hex.DecodeString(want)
	require.NoError(t, err)

	inputs := []any{
		oid,
		&oid,
		want,
		"  " + want + "  ",
		toUpper(want),
		raw,
		map[string]any{"id": want},
		map[string]any{"_id": oid},
		fakeRecord{ID: oid},
		&fakeRecord{ID: raw},
	}
	for _, in := range inputs {
		assert.Equal(t, want, ParseIdentifier(in).String(), "input %#v", in)
	}
}

func TestParseIdentifier_UUIDForms(t *testing.T) {
	u := uuid.New()
	assert.Equal(t, u.String(), NormalizeID(u))
	assert.Equal(t, u.String(), NormalizeID(toUpper(u.String())))
	assert.Equal(t, "", NormalizeID(uuid.Nil))
}

func TestParseIdentifier_BufferIsLowercaseHex(t *testing.T) {
	assert.Equal(t, "0aff10", NormalizeID([]byte{0x0a, 0xff, 0x10}))
}

func TestParseIdentifier_EmptyNeverPanics(t *testing.T) {
	var nilRecord *fakeRecord
	var nilInt *int
	cyclic := map[string]any{}
	cyclic["id"] = cyclic

	inputs := []any{
		nil,
		"",
		"   ",
		true,
		nilRecord,
		nilInt,
		map[string]any{},
		map[string]any{"name": "no id"},
		cyclic,
		struct{ Name string }{"x"},
		[]byte{},
		primitive.NilObjectID,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.True(t, ParseIdentifier(in).IsEmpty(), "input %#v", in)
		})
	}
}

func TestParseIdentifier_DepthLimit(t *testing.T) {
	var v any = "7"
	for i := 0; i < 5; i++ {
		v = map[string]any{"id": v}
	}
	assert.Equal(t, "7", NormalizeID(v))

	v = map[string]any{"id": v}
	assert.Equal(t, "", NormalizeID(v))
}

func TestSameIdentity(t *testing.T) {
	assert.True(t, SameIdentity(5, "5"))
	assert.True(t, SameIdentity(map[string]any{"id": 5}, json.Number("5")))
	assert.False(t, SameIdentity(5, 6))
	assert.False(t, SameIdentity(nil, nil))
	assert.False(t, SameIdentity("", ""))
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, NormalizeIDs([]any{1, "1", nil, " 2 ", 2.0}))
	assert.True(t, ContainsIdentity([]string{"a", "3"}, 3))
	assert.False(t, ContainsIdentity([]string{"a"}, nil))
}

func TestIdentifierInt(t *testing.T) {
	n, ok := ParseIdentifier("17").Int()
	assert.True(t, ok)
	assert.Equal(t, int64(17), n)

	_, ok = ParseIdentifier(primitive.NewObjectID()).Int()
	assert.False(t, ok)
}

func TestIdentifierJSON(t *testing.T) {
	var body struct {
		Product Identifier `json:"product"`
		Variant Identifier `json:"variant"`
		Missing Identifier `json:"missing"`
	}
	err := json.Unmarshal([]byte(`{"product": 12, "variant": {"id": "0012"}, "missing": null}`), &body)
	require.NoError(t, err)

	assert.Equal(t, "12", body.Product.String())
	assert.Equal(t, "12", body.Variant.String())
	assert.True(t, body.Missing.IsEmpty())

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"product": "12", "variant": "12", "missing": null}`, string(out))
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
