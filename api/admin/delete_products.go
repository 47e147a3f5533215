package admin

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// DeleteProduct removes the product; its mappings are left for the orphan sweep
func (ar *AdminRoutesManager) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := lib.NormalizeID(chi.URLParam(r, "id"))

	if err := ar.productService.Delete(r.Context(), id); err != nil {
		handling.RespondError(err, "Unable to delete product", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Product deleted successfully"),
		gecho.Send(),
	)
}
