package admin

import (
	"net/http"

	"storefront_server/handling"
	"storefront_server/structs/tables"

	"github.com/MonkyMars/gecho"
)

// ListOrders lists orders newest first, optionally filtered by ?status=
func (ar *AdminRoutesManager) ListOrders(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseFindOptions(r)
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid query parameters"), gecho.WithData(err.Error()), gecho.Send())
		return
	}

	status := tables.OrderStatus(r.URL.Query().Get("status"))
	orders, err := ar.orderService.List(r.Context(), status, opts)
	if err != nil {
		handling.RespondError(err, "Failed to list orders", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(orders),
		gecho.Send(),
	)
}

func (ar *AdminRoutesManager) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	order, err := ar.orderService.Get(r.Context(), orderID(r))
	if err != nil {
		handling.RespondError(err, "Failed to fetch order", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(order),
		gecho.Send(),
	)
}
