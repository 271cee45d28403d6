package handler

import (
	"net/http"

	"masterhub/internal/service"
)

type submitBidRequest struct {
	Price int64  `json:"price"`
	Note  string `json:"note"`
}

type editBidRequest struct {
	Price int64 `json:"price"`
}

// SubmitBidHandler answers 201 for a new bid and 200 when the master's
// active bid was updated in place.
func SubmitBidHandler(bidSvc *service.BidService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}

		var req submitBidRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		bid, created, err := bidSvc.Submit(r.Context(), orderID, actor, req.Price, req.Note)
		if err != nil {
			writeError(w, r, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, bid)
	}
}

func ListBidsHandler(bidSvc *service.BidService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}

		bids, err := bidSvc.ListByOrder(r.Context(), orderID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if len(bids) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, bids)
	}
}

func EditBidHandler(bidSvc *service.BidService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		bidID, ok := idParam(w, r, "bidID")
		if !ok {
			return
		}

		var req editBidRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		bid, err := bidSvc.Edit(r.Context(), bidID, actor, req.Price)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, bid)
	}
}

func CancelBidHandler(bidSvc *service.BidService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		bidID, ok := idParam(w, r, "bidID")
		if !ok {
			return
		}

		if err := bidSvc.Cancel(r.Context(), bidID, actor); err != nil {
			writeError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
