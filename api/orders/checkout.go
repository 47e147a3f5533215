package orders

import (
	"errors"
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/services"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
)

// Checkout handles the form-encoded checkout submission and redirects to the success page
func (orm *OrderRoutesManager) Checkout(w http.ResponseWriter, r *http.Request) {
	form, err := lib.ExtractAndValidateForm[structs.CheckoutForm](r)
	if err != nil {
		var invalid *lib.ValidationError
		if errors.As(err, &invalid) {
			gecho.BadRequest(w,
				gecho.WithMessage("Missing required fields"),
				gecho.WithData(invalid.Errors),
				gecho.Send(),
			)
			return
		}
		handling.RespondBodyError(w, err)
		return
	}

	req, err := orm.checkoutService.ParseForm(form)
	if err != nil {
		handling.RespondError(err, "Invalid checkout data", orm.logger, w)
		return
	}

	order, effects, err := orm.checkoutService.Checkout(r.Context(), req)
	// Deductions that already happened still need their recompute, even when the order failed
	orm.dispatch(r.Context(), effects...)
	if err != nil {
		orm.respondCheckoutError(w, err)
		return
	}

	w.Header().Set("X-Order-Number", order.OrderNumber)
	http.Redirect(w, r, orm.cfg.SuccessPath, http.StatusFound)
}

// respondCheckoutError reports products that vanished from the catalog as a conflict, the cart is stale
func (orm *OrderRoutesManager) respondCheckoutError(w http.ResponseWriter, err error) {
	if errors.Is(err, lib.ErrNotFound) {
		details := lib.DetailsOf(err)
		if details == nil {
			details = []string{}
		}
		gecho.Conflict(w,
			gecho.WithMessage(lib.MessageOf(err, "Some products in cart are no longer available")),
			gecho.WithData(map[string]any{"details": details}),
			gecho.Send(),
		)
		return
	}

	var deduction *services.DeductionError
	if errors.As(err, &deduction) {
		orm.logger.Error("Checkout failed after stock deduction",
			gecho.Field("error", err),
			gecho.Field("deducted", deduction.Deducted),
		)
	}

	handling.RespondError(err, "Failed to process checkout", orm.logger, w)
}
