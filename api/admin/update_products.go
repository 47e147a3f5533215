package admin

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

func (ar *AdminRoutesManager) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := lib.NormalizeID(chi.URLParam(r, "id"))

	body, err := lib.ExtractAndValidateBody[structs.ProductPatch](r)
	if err != nil {
		handling.RespondBodyError(w, err)
		return
	}

	product, err := ar.productService.Update(r.Context(), id, body)
	if err != nil {
		handling.RespondError(err, "Unable to update product. Please try again", ar.logger, w)
		return
	}
	ar.dispatch(r.Context(), services.InvalidateVariants(product.ID))

	gecho.Success(w,
		gecho.WithData(product),
		gecho.WithMessage("Product updated successfully"),
		gecho.Send(),
	)
}

// RecomputeProductStock recalculates totalStock immediately, bypassing the debounce window
func (ar *AdminRoutesManager) RecomputeProductStock(w http.ResponseWriter, r *http.Request) {
	id := lib.NormalizeID(chi.URLParam(r, "id"))

	if err := ar.productService.RecomputeStock(r.Context(), id); err != nil {
		handling.RespondError(err, "Unable to recompute stock", ar.logger, w)
		return
	}

	product, err := ar.productService.Get(r.Context(), id)
	if err != nil {
		handling.RespondError(err, "Unable to load product", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{"id": product.ID, "totalStock": product.TotalStock}),
		gecho.WithMessage("Stock recomputed"),
		gecho.Send(),
	)
}
