package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"storefront_server/config"
	"storefront_server/database"
	"storefront_server/lib"
	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	cfg    *structs.Config
	sm     *services.ServiceManager
	router chi.Router
	token  string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Load()
	cfg.Cache.Enabled = false
	cfg.RateLimit.Enabled = false
	cfg.Email.Enabled = false
	cfg.Encryption.Key = ""
	cfg.Stock.RecomputeDelay = 10 * time.Millisecond
	cfg.Jobs.Timezone = "UTC"
	cfg.Jobs.CleanupSchedule = ""
	cfg.Auth.AdminTokenSecret = "router-test-secret"

	sm, err := services.NewServiceManager(gecho.NewDefaultLogger(), cfg, nil, database.NewMemoryStores())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sm.Shutdown(ctx)
	})

	token, err := lib.SignAdminToken("tester", cfg.Auth.AdminRole, cfg.Auth.AdminTokenSecret, cfg.Auth.AdminTokenIssuer, time.Minute)
	require.NoError(t, err)

	return &testApp{cfg: cfg, sm: sm, router: App(cfg, sm), token: token}
}

func (a *testApp) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) checkout(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) (T, string) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())

	var out T
	if len(env.Data) > 0 && string(env.Data) != "null" {
		require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	}
	return out, env.Message
}

type idOnly struct {
	ID string `json:"id"`
}

// seedCatalog creates a published product with one stocked variant through the admin API.
func (a *testApp) seedCatalog(t *testing.T, quantity int) (productID, variantID, mappingID string) {
	t.Helper()

	w := a.do(t, http.MethodPost, "/products", map[string]any{
		"title":          "Peony",
		"original_price": "12.50",
		"published":      true,
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	product, _ := decode[idOnly](t, w)

	w = a.do(t, http.MethodPost, "/variants", map[string]any{
		"name":     "Red",
		"price":    "8.00",
		"sku":      "PEONY-RED",
		"category": "color",
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	variant, _ := decode[idOnly](t, w)

	w = a.do(t, http.MethodPost, "/product-variant-mappings", map[string]any{
		"product":    product.ID,
		"variant":    variant.ID,
		"quantity":   quantity,
		"is_default": true,
		"is_active":  true,
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	mapping, _ := decode[idOnly](t, w)

	return product.ID, variant.ID, mapping.ID
}

func TestRouter_CatalogAndCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	productID, variantID, mappingID := app.seedCatalog(t, 5)

	w := app.do(t, http.MethodGet, "/products/"+productID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	product, _ := decode[struct {
		TotalStock      int      `json:"total_stock"`
		VariantMappings []string `json:"variant_mappings"`
	}](t, w)
	assert.Equal(t, 5, product.TotalStock)
	assert.Equal(t, []string{mappingID}, product.VariantMappings)

	w = app.do(t, http.MethodGet, "/product-variants/"+productID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	options, _ := decode[[]structs.VariantOption](t, w)
	require.Len(t, options, 1)
	assert.Equal(t, mappingID, options[0].ID)
	assert.Equal(t, variantID, options[0].VariantID)
	assert.Equal(t, 5, options[0].Stock)

	w = app.do(t, http.MethodPost, "/validate-cart-item", map[string]any{"productId": productID, "variantId": mappingID}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	validation, _ := decode[structs.CartItemValidation](t, w)
	assert.True(t, validation.OK)
	assert.Equal(t, "8", validation.Price.String())

	cart := fmt.Sprintf(`[{"id":%q,"quantity":2,"variant":{"id":%q,"name":"Red"}}]`, productID, variantID)
	w = app.checkout(t, url.Values{
		"name":      {"Jane Doe"},
		"email":     {"jane@example.com"},
		"phone":     {"0612345678"},
		"address":   {"Main Street 1"},
		"cartItems": {cart},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, app.cfg.Checkout.SuccessPath, w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("X-Order-Number"))

	w = app.do(t, http.MethodGet, "/product-variants/"+productID, nil, false)
	options, _ = decode[[]structs.VariantOption](t, w)
	require.Len(t, options, 1)
	assert.Equal(t, 3, options[0].Stock)

	w = app.do(t, http.MethodGet, "/orders", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	orders, _ := decode[struct {
		Docs []idOnly `json:"docs"`
	}](t, w)
	require.Len(t, orders.Docs, 1)

	w = app.do(t, http.MethodPost, "/orders/"+orders.Docs[0].ID+"/cancel", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/product-variants/"+productID, nil, false)
	options, _ = decode[[]structs.VariantOption](t, w)
	assert.Equal(t, 5, options[0].Stock)

	w = app.do(t, http.MethodPost, "/orders/"+orders.Docs[0].ID+"/cancel", nil, true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_CheckoutRejections(t *testing.T) {
	app := newTestApp(t)
	productID, variantID, _ := app.seedCatalog(t, 1)

	base := func(cart string) url.Values {
		return url.Values{
			"name":      {"Jane Doe"},
			"email":     {"jane@example.com"},
			"phone":     {"0612345678"},
			"address":   {"Main Street 1"},
			"cartItems": {cart},
		}
	}

	t.Run("missing fields", func(t *testing.T) {
		form := base("[]")
		form.Del("phone")
		w := app.checkout(t, form)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		_, msg := decode[any](t, w)
		assert.Equal(t, "Missing required fields", msg)
	})

	t.Run("invalid email", func(t *testing.T) {
		form := base(`[{"id":"x","quantity":1}]`)
		form.Set("email", "not-an-email")
		w := app.checkout(t, form)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		_, msg := decode[any](t, w)
		assert.Equal(t, "Invalid email address", msg)
	})

	t.Run("invalid cart json", func(t *testing.T) {
		w := app.checkout(t, base("{not json"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		_, msg := decode[any](t, w)
		assert.Equal(t, "Invalid cart data", msg)
	})

	t.Run("missing product is a conflict", func(t *testing.T) {
		w := app.checkout(t, base(`[{"id":"gone","quantity":1}]`))
		assert.Equal(t, http.StatusConflict, w.Code)
		details, msg := decode[struct {
			Details []string `json:"details"`
		}](t, w)
		assert.Contains(t, msg, "gone")
		assert.Equal(t, []string{"gone"}, details.Details)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		cart := fmt.Sprintf(`[{"id":%q,"quantity":3,"variant":{"id":%q}}]`, productID, variantID)
		w := app.checkout(t, base(cart))
		assert.Equal(t, http.StatusConflict, w.Code)
		details, msg := decode[struct {
			Details []string `json:"details"`
		}](t, w)
		assert.Equal(t, "Insufficient stock", msg)
		require.Len(t, details.Details, 1)
		assert.Contains(t, details.Details[0], "requested 3, available 1")
	})
}

func TestRouter_ValidateCartItemStatuses(t *testing.T) {
	app := newTestApp(t)
	productID, _, _ := app.seedCatalog(t, 0)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing product id", map[string]any{}, http.StatusBadRequest},
		{"unknown product", map[string]any{"productId": "missing"}, http.StatusNotFound},
		{"unmapped variant", map[string]any{"productId": productID, "variantId": "nope"}, http.StatusBadRequest},
		{"out of stock", map[string]any{"productId": productID}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/validate-cart-item", tt.body, false)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRouter_MappingLifecycle(t *testing.T) {
	app := newTestApp(t)
	productID, _, mappingID := app.seedCatalog(t, 4)

	w := app.do(t, http.MethodGet, "/product-variant-mappings?product="+productID+"&depth=1", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	list, _ := decode[struct {
		Docs []struct {
			ID      string  `json:"id"`
			Variant *idOnly `json:"variant"`
		} `json:"docs"`
	}](t, w)
	require.Len(t, list.Docs, 1)
	assert.NotNil(t, list.Docs[0].Variant)

	w = app.do(t, http.MethodPatch, "/product-variant-mappings/"+mappingID, map[string]any{"quantity": 9}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodPatch, "/product-variant-mappings/"+mappingID, map[string]any{"product": "another"}, true)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/products/"+productID+"/recompute-stock", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	stock, _ := decode[struct {
		TotalStock int `json:"totalStock"`
	}](t, w)
	assert.Equal(t, 9, stock.TotalStock)

	w = app.do(t, http.MethodDelete, "/product-variant-mappings/"+mappingID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/products/"+productID, nil, false)
	product, _ := decode[struct {
		TotalStock      int      `json:"total_stock"`
		VariantMappings []string `json:"variant_mappings"`
	}](t, w)
	assert.Empty(t, product.VariantMappings)
	assert.Zero(t, product.TotalStock)

	w = app.do(t, http.MethodGet, "/product-variants/"+productID, nil, false)
	options, _ := decode[[]structs.VariantOption](t, w)
	assert.Empty(t, options)
}

func TestRouter_AdminAuth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/products", map[string]any{"title": "x"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	editor, err := lib.SignAdminToken("ed", "editor", app.cfg.Auth.AdminTokenSecret, app.cfg.Auth.AdminTokenIssuer, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+editor)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// public reads stay open
	w = app.do(t, http.MethodGet, "/products", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_HealthAndDebug(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/health/server", "/health/database", "/health/cache"} {
		w := app.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := app.do(t, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_http_requests_total")

	w = app.do(t, http.MethodPost, "/debug/cleanup", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	report, _ := decode[structs.CleanupReport](t, w)
	assert.Zero(t, report.Orphaned)

	w = app.do(t, http.MethodGet, "/does-not-exist", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_EmptiedMappingListZeroesStock(t *testing.T) {
	app := newTestApp(t)
	productID, _, _ := app.seedCatalog(t, 5)

	w := app.do(t, http.MethodPost, "/products/"+productID+"/recompute-stock", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := app.sm.Stores.Products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	require.Equal(t, 5, stored.TotalStock)

	w = app.do(t, http.MethodPatch, "/products/"+productID, map[string]any{"variant_mappings": []string{}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err = app.sm.Stores.Products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	assert.Empty(t, stored.VariantMappings)
	assert.Zero(t, stored.TotalStock)

	w = app.do(t, http.MethodGet, "/products/"+productID, nil, false)
	product, _ := decode[struct {
		TotalStock int `json:"total_stock"`
	}](t, w)
	assert.Zero(t, product.TotalStock)
}
