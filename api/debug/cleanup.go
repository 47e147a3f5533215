package debug

import (
	"net/http"

	"storefront_server/handling"

	"github.com/MonkyMars/gecho"
)

// RunCleanup runs the orphan sweep on demand and returns its report
func (drm *DebugRoutesManager) RunCleanup(w http.ResponseWriter, r *http.Request) {
	report, err := drm.sweep(r.Context())
	if err != nil {
		handling.RespondError(err, "Orphan cleanup failed", drm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Orphan cleanup finished"),
		gecho.WithData(report),
		gecho.Send(),
	)
}
