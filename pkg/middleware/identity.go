package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const actorKey contextKey = "actor"

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// Identity resolves the caller from an HS256 bearer token. The "sub" claim is
// the customer reference and "role" marks admins. Requests without a token
// continue as anonymous; services decide whether that is allowed.
func Identity(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				reject(w, apperrors.Unauthorized("Authorization header must be a Bearer token"))
				return
			}

			actor, err := ParseActor(raw, key)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", requestIDFrom(r),
					"path", r.URL.Path,
					"error", err,
				)
				reject(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func ParseActor(raw string, key []byte) (model.Actor, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Actor{}, err
	}
	if !token.Valid {
		return model.Actor{}, jwt.ErrTokenSignatureInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return model.Actor{}, jwt.ErrTokenRequiredClaimMissing
	}
	role, _ := claims["role"].(string)

	return model.Actor{CustomerRef: sub, Role: role}, nil
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the caller, or an anonymous actor when none was resolved.
func ActorFrom(ctx context.Context) model.Actor {
	actor, _ := ctx.Value(actorKey).(model.Actor)
	return actor
}
