package admin

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

func (ar *AdminRoutesManager) CreateVariant(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.VariantRequest](r)
	if err != nil {
		handling.RespondBodyError(w, err)
		return
	}

	variant, err := ar.variantService.Create(r.Context(), body)
	if err != nil {
		handling.RespondError(err, "Unable to create variant", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(variant),
		gecho.WithMessage("Variant created successfully"),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) GetVariant(w http.ResponseWriter, r *http.Request) {
	variant, err := ar.variantService.Get(r.Context(), lib.NormalizeID(chi.URLParam(r, "id")))
	if err != nil {
		handling.RespondError(err, "Unable to fetch variant", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(variant),
		gecho.Send(),
	)
}
