package handler

import (
	"net/http"
	"strconv"

	"masterhub/internal/service"
)

type createOrderRequest struct {
	Category string `json:"category"`
	Address  string `json:"address"`
}

func CreateOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}

		var req createOrderRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		order, err := orderSvc.Create(r.Context(), actor, req.Category, req.Address)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}

		orders, err := orderSvc.ListMine(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// ListOpenOrdersHandler serves the bidding feed: ?category= filters,
// ?limit= caps the page.
func ListOpenOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := actorOrUnauthorized(w, r); !ok {
			return
		}

		var limit int
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeErrorMessage(w, http.StatusBadRequest, "bad_request", "invalid limit")
				return
			}
			limit = n
		}

		orders, err := orderSvc.ListOpen(r.Context(), r.URL.Query().Get("category"), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

func GetOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}

		order, err := orderSvc.Get(r.Context(), orderID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func CancelOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}

		order, err := orderSvc.Cancel(r.Context(), orderID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}
