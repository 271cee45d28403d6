package handler

import (
	"net/http"

	"masterhub/internal/model"
	"masterhub/internal/mw"
	"masterhub/internal/service"
)

type registerRequest struct {
	Login     string     `json:"login"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role"`
	PartnerID *int64     `json:"partner_id"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func RegisterHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if req.Login == "" || req.Password == "" {
			writeErrorMessage(w, http.StatusBadRequest, "bad_request", "login and password required")
			return
		}

		user, err := authSvc.Register(r.Context(), req.Login, req.Password, req.Role, req.PartnerID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		respondWithToken(w, *user, secret)
	}
}

func LoginHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := authSvc.Authenticate(r.Context(), req.Login, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		respondWithToken(w, *user, secret)
	}
}

func respondWithToken(w http.ResponseWriter, user model.User, secret string) {
	token, err := mw.IssueToken(user, secret)
	if err != nil {
		writeErrorMessage(w, http.StatusInternalServerError, "internal", "token generation failed")
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	writeJSON(w, http.StatusOK, user)
}
