package debug

import (
	"net/http"

	"github.com/MonkyMars/gecho"
)

func (drm *DebugRoutesManager) ClearCache(w http.ResponseWriter, r *http.Request) {
	if !drm.cacheService.Enabled() {
		gecho.Success(w,
			gecho.WithMessage("Cache disabled, nothing to clear"),
			gecho.Send(),
		)
		return
	}

	// ?all=true flushes rate limit counters as well
	flush := drm.cacheService.ClearVariantCaches
	if r.URL.Query().Get("all") == "true" {
		flush = drm.cacheService.ClearAll
	}

	if err := flush(r.Context()); err != nil {
		drm.logger.Error("Failed to clear cache", gecho.Field("error", err))
		gecho.InternalServerError(w,
			gecho.WithMessage("Failed to clear cache"),
			gecho.Send(),
		)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Cache cleared"),
		gecho.Send(),
	)
}
