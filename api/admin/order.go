package admin

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/lib"
	"storefront_server/structs"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// UpdateOrderStatus moves an order along its lifecycle; cancelling returns its stock
func (ar *AdminRoutesManager) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.OrderStatusRequest](r)
	if err != nil {
		handling.RespondBodyError(w, err)
		return
	}

	ar.setStatus(w, r, body.Status)
}

func (ar *AdminRoutesManager) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ar.setStatus(w, r, tables.OrderStatusCancelled)
}

func (ar *AdminRoutesManager) setStatus(w http.ResponseWriter, r *http.Request, status tables.OrderStatus) {
	id := orderID(r)

	order, effects, err := ar.orderService.UpdateStatus(r.Context(), id, status)
	if err != nil {
		handling.RespondError(err, "Failed to update order status", ar.logger, w)
		return
	}
	ar.dispatch(r.Context(), effects...)

	ar.logger.Info("Order status updated",
		gecho.Field("order_id", id),
		gecho.Field("status", string(status)),
	)

	gecho.Success(w,
		gecho.WithData(order),
		gecho.WithMessage("Order status updated"),
		gecho.Send(),
	)
}

func orderID(r *http.Request) string {
	return lib.NormalizeID(chi.URLParam(r, "id"))
}
