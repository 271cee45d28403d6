package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"masterhub/internal/model"
	"masterhub/internal/service"
)

type createPartnerRequest struct {
	Name          string           `json:"name"`
	PayoutPercent *decimal.Decimal `json:"payout_percent"`
}

func ListPayoutsHandler(payoutSvc *service.PayoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}

		status := model.PayoutStatus(r.URL.Query().Get("status"))
		payouts, err := payoutSvc.List(r.Context(), actor, status)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if len(payouts) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, payouts)
	}
}

// CreatePayoutHandler lets an administrator retry the payout of a done order
// by hand, ahead of the background worker.
func CreatePayoutHandler(payoutSvc *service.PayoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := idParam(w, r, "orderID")
		if !ok {
			return
		}

		payout, err := payoutSvc.CreatePayout(r.Context(), orderID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, payout)
	}
}

func ApprovePayoutHandler(payoutSvc *service.PayoutService) http.HandlerFunc {
	return processPayoutHandler(payoutSvc.Approve)
}

func RejectPayoutHandler(payoutSvc *service.PayoutService) http.HandlerFunc {
	return processPayoutHandler(payoutSvc.Reject)
}

func processPayoutHandler(process func(ctx context.Context, payoutID int64, admin model.Actor) (model.Payout, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		payoutID, ok := idParam(w, r, "payoutID")
		if !ok {
			return
		}

		payout, err := process(r.Context(), payoutID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, payout)
	}
}

func GetPayoutHandler(payoutSvc *service.PayoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}
		payoutID, ok := idParam(w, r, "payoutID")
		if !ok {
			return
		}

		payout, err := payoutSvc.Get(r.Context(), payoutID, actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, payout)
	}
}

func CreatePartnerHandler(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}

		var req createPartnerRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		partner, err := authSvc.CreatePartner(r.Context(), actor, req.Name, req.PayoutPercent)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, partner)
	}
}
