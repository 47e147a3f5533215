package mappings

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// ListMappings handles GET /product-variant-mappings?product=<id>
func (mrm *MappingRoutesManager) ListMappings(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseFindOptions(r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid query parameters"),
			gecho.WithData(err.Error()),
			gecho.Send(),
		)
		return
	}

	result, err := mrm.mappingService.List(r.Context(), r.URL.Query().Get("product"), opts)
	if err != nil {
		handling.RespondError(err, "Failed to fetch mappings", mrm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(result),
		gecho.Send(),
	)
}

func (mrm *MappingRoutesManager) GetMapping(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseFindOptions(r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid query parameters"),
			gecho.WithData(err.Error()),
			gecho.Send(),
		)
		return
	}

	mapping, err := mrm.mappingService.Get(r.Context(), lib.NormalizeID(chi.URLParam(r, "id")), opts.Depth)
	if err != nil {
		handling.RespondError(err, "Failed to fetch mapping", mrm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(mapping),
		gecho.Send(),
	)
}
