package admin

import (
	"net/http"

	"storefront_server/handling"

	"github.com/MonkyMars/gecho"
)

// ListAllProducts lists drafts and published products alike
func (ar *AdminRoutesManager) ListAllProducts(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseFindOptions(r)
	if err != nil {
		ar.logger.Warn("Failed to parse product list options", gecho.Field("error", err))
		gecho.BadRequest(w, gecho.WithMessage("Invalid query parameters"), gecho.WithData(err.Error()), gecho.Send())
		return
	}

	products, err := ar.productService.List(r.Context(), false, opts)
	if err != nil {
		handling.RespondError(err, "Failed to list products", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(products),
		gecho.Send(),
	)
}
