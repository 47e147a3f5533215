package handling

import (
	"errors"
	"net/http"

	"storefront_server/lib"

	"github.com/MonkyMars/gecho"
)

func HandleError(err error, msg string, logger *gecho.Logger, w http.ResponseWriter) error {
	logger.Error("An error occurred", gecho.Field("error", err), gecho.Field("msg", msg), gecho.WithCallerSkip(3))

	gecho.InternalServerError(w, gecho.WithMessage(msg), gecho.Send())
	return nil
}

// RespondError writes the response matching the kind of err. Unknown errors are logged
// and answered with a 500 carrying fallback.
func RespondError(err error, fallback string, logger *gecho.Logger, w http.ResponseWriter) error {
	var invalid *lib.ValidationError
	if errors.As(err, &invalid) {
		gecho.BadRequest(w,
			gecho.WithMessage("Invalid request body"),
			gecho.WithData(invalid.Errors),
			gecho.Send(),
		)
		return nil
	}

	msg := lib.MessageOf(err, fallback)
	details := lib.DetailsOf(err)

	switch {
	case errors.Is(err, lib.ErrValidation):
		gecho.BadRequest(w, gecho.WithMessage(msg), gecho.WithData(detailsData(details)), gecho.Send())
		return nil
	case errors.Is(err, lib.ErrNotFound):
		gecho.NotFound(w, gecho.WithMessage(msg), gecho.WithData(detailsData(details)), gecho.Send())
		return nil
	case errors.Is(err, lib.ErrStock), errors.Is(err, lib.ErrConflict):
		gecho.Conflict(w, gecho.WithMessage(msg), gecho.WithData(detailsData(details)), gecho.Send())
		return nil
	case errors.Is(err, lib.ErrTimeout):
		logger.Warn("Request timed out", gecho.Field("error", err))
		gecho.ServiceUnavailable(w, gecho.WithMessage(msg), gecho.Send())
		return nil
	default:
		return HandleError(err, fallback, logger, w)
	}
}

func detailsData(details []string) map[string]any {
	if details == nil {
		details = []string{}
	}
	return map[string]any{"details": details}
}

// RespondBodyError answers a request whose body could not be decoded or validated.
func RespondBodyError(w http.ResponseWriter, err error) error {
	var data any = err.Error()
	var invalid *lib.ValidationError
	if errors.As(err, &invalid) {
		data = invalid.Errors
	}
	gecho.BadRequest(w,
		gecho.WithMessage("Invalid request body"),
		gecho.WithData(data),
		gecho.Send(),
	)
	return nil
}
