package handler

import (
	"net/http"

	"masterhub/internal/service"
)

func GetBalanceHandler(balanceSvc *service.BalanceService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOrUnauthorized(w, r)
		if !ok {
			return
		}

		balance, err := balanceSvc.Get(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, balance)
	}
}
