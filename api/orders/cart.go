package orders

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
)

// ValidateCartItem checks one cart line against live stock before it is added to the cart
func (orm *OrderRoutesManager) ValidateCartItem(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.CartItemValidationRequest](r)
	if err != nil {
		handling.RespondBodyError(w, err)
		return
	}

	result, err := orm.cartService.ValidateItem(r.Context(), body)
	if err != nil {
		handling.RespondError(err, "Failed to validate cart item", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(result),
		gecho.Send(),
	)
}
