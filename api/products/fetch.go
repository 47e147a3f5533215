package products

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// FetchPublishedProducts handles GET /products with pagination and sorting
func (prm *ProductRoutesManager) FetchPublishedProducts(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseFindOptions(r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid query parameters"),
			gecho.WithData(err.Error()),
			gecho.Send(),
		)
		return
	}

	result, err := prm.productService.List(r.Context(), true, opts)
	if err != nil {
		handling.RespondError(err, "Failed to fetch products", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(result),
		gecho.Send(),
	)
}

// FetchProductByID handles GET /products/{id}; stock is reconciled on read
func (prm *ProductRoutesManager) FetchProductByID(w http.ResponseWriter, r *http.Request) {
	id := lib.NormalizeID(chi.URLParam(r, "id"))
	if id == "" {
		gecho.BadRequest(w,
			gecho.WithMessage("Product id is required"),
			gecho.Send(),
		)
		return
	}

	product, err := prm.productService.GetPublished(r.Context(), id)
	if err != nil {
		handling.RespondError(err, "Failed to fetch product", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(product),
		gecho.Send(),
	)
}

// FetchVariantOptions handles GET /product-variants/{productId}. Lookup failures degrade to an empty list.
func (prm *ProductRoutesManager) FetchVariantOptions(w http.ResponseWriter, r *http.Request) {
	productID := lib.NormalizeID(chi.URLParam(r, "productId"))

	options := prm.variantService.ListOptions(r.Context(), productID)

	gecho.Success(w,
		gecho.WithData(options),
		gecho.Send(),
	)
}
