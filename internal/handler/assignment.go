package handler

import (
	"net/http"

	"masterhub/internal/service"
)

func SelectBidHandler(assignSvc *service.AssignmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}
		bidID, ok := idParam(w, r, "bidID")
		if !ok {
			return
		}

		order, err := assignSvc.SelectBid(r.Context(), orderID, bidID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func CompleteOrderHandler(assignSvc *service.AssignmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}

		order, err := assignSvc.CompleteOrder(r.Context(), orderID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func RejectBidHandler(assignSvc *service.AssignmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		bidID, ok := idParam(w, r, "bidID")
		if !ok {
			return
		}

		bid, err := assignSvc.RejectBid(r.Context(), bidID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, bid)
	}
}
