package mw

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"masterhub/internal/model"
)

type contextKey string

const ActorCtxKey contextKey = "actor"

const tokenTTL = 24 * time.Hour

// IssueToken signs a bearer token carrying the user's id and role.
func IssueToken(user model.User, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": strconv.FormatInt(user.ID, 10),
		"role":    string(user.Role),
		"exp":     jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	})
	return token.SignedString([]byte(secret))
}

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid claims", http.StatusUnauthorized)
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ActorCtxKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must be mounted after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !actor.IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ActorCtxKey).(model.Actor)
	return actor, ok
}

func actorFromClaims(claims jwt.MapClaims) (model.Actor, error) {
	raw, ok := claims["user_id"].(string)
	if !ok {
		return model.Actor{}, errors.New("user_id not found in token")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return model.Actor{}, errors.New("malformed user_id in token")
	}

	role := model.Role(claimString(claims, "role"))
	if !role.Valid() {
		return model.Actor{}, errors.New("unknown role in token")
	}
	return model.Actor{ID: id, Role: role}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
