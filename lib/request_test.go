package lib

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleForm struct {
	Name  string `mapstructure:"name" validate:"required"`
	Count int    `mapstructure:"count" validate:"gte=1"`
}

type sampleBody struct {
	Title string `json:"title" validate:"required,max=5"`
}

func formRequest(values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestExtractAndValidateForm(t *testing.T) {
	form, err := ExtractAndValidateForm[sampleForm](formRequest(url.Values{"name": {" Ada "}, "count": {"3"}}))
	require.NoError(t, err)
	assert.Equal(t, "Ada", form.Name)
	assert.Equal(t, 3, form.Count)

	_, err = ExtractAndValidateForm[sampleForm](formRequest(url.Values{"count": {"3"}}))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "name", ve.Errors[0].Field)
}

func TestExtractAndValidateBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"ok"}`))
	body, err := ExtractAndValidateBody[sampleBody](r)
	require.NoError(t, err)
	assert.Equal(t, "ok", body.Title)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"too long"}`))
	_, err = ExtractAndValidateBody[sampleBody](r)
	assert.ErrorIs(t, err, ErrValidation)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"ok","extra":1}`))
	_, err = ExtractAndValidateBody[sampleBody](r)
	assert.Error(t, err)
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("jane@example.com"))
	assert.False(t, IsValidEmail("jane@"))
	assert.False(t, IsValidEmail("not an email"))
	assert.False(t, IsValidEmail(""))
}
