package admin

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
)

func (ar *AdminRoutesManager) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.ProductRequest](r)
	if err != nil {
		ar.logger.Debug("Failed to extract and validate body", gecho.Field("error", err))
		handling.RespondBodyError(w, err)
		return
	}

	ar.logger.Debug("CreateProduct request received",
		gecho.Field("title", body.Title),
		gecho.Field("mappings_count", len(body.VariantMappings)),
	)

	newProduct, err := ar.productService.Create(r.Context(), body)
	if err != nil {
		handling.RespondError(err, "Unable to create product. Please try again", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(newProduct),
		gecho.WithMessage("Product created successfully"),
		gecho.Send(),
	)
}
