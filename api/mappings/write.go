package mappings

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// CreateMapping handles POST /product-variant-mappings and links the mapping into its product
func (mrm *MappingRoutesManager) CreateMapping(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.MappingRequest](r)
	if err != nil {
		handling.RespondBodyError(w, err)
		return
	}

	mapping, effects, err := mrm.mappingService.Create(r.Context(), body)
	if err != nil {
		handling.RespondError(err, "Failed to create mapping", mrm.logger, w)
		return
	}
	mrm.dispatch(r.Context(), effects...)

	gecho.Success(w,
		gecho.WithMessage("Mapping created"),
		gecho.WithData(mapping),
		gecho.Send(),
	)
}

// UpdateMapping handles PATCH /product-variant-mappings/{id}
func (mrm *MappingRoutesManager) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.MappingPatch](r)
	if err != nil {
		handling.RespondBodyError(w, err)
		return
	}

	mapping, effects, err := mrm.mappingService.Update(r.Context(), lib.NormalizeID(chi.URLParam(r, "id")), body)
	if err != nil {
		handling.RespondError(err, "Failed to update mapping", mrm.logger, w)
		return
	}
	mrm.dispatch(r.Context(), effects...)

	gecho.Success(w,
		gecho.WithMessage("Mapping updated"),
		gecho.WithData(mapping),
		gecho.Send(),
	)
}

// DeleteMapping handles DELETE /product-variant-mappings/{id}; the product list is cleaned up before responding
func (mrm *MappingRoutesManager) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	effects, err := mrm.mappingService.Delete(r.Context(), lib.NormalizeID(chi.URLParam(r, "id")))
	if err != nil {
		handling.RespondError(err, "Failed to delete mapping", mrm.logger, w)
		return
	}
	mrm.dispatch(r.Context(), effects...)

	gecho.Success(w,
		gecho.WithMessage("Mapping deleted"),
		gecho.Send(),
	)
}
