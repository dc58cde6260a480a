package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pixeltoplanet/carbonfooter-service/internal/application"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
	"github.com/pixeltoplanet/carbonfooter-service/internal/ports"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// optionalAuth attaches an actor when a valid bearer token is present but
// never rejects. Page-view reporting is open to anonymous visitors.
func optionalAuth(verifier ports.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), claims)))
		})
	}
}

// requireRole rejects requests without a valid token carrying one of the
// allowed roles.
func requireRole(verifier ports.TokenVerifier, roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				status, code := mapDomainError(domain.ErrUnauthorized)
				writeError(w, status, code, "missing bearer token", requestIDFromContext(r.Context()))
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				status, code := mapDomainError(domain.ErrUnauthorized)
				writeError(w, status, code, "invalid bearer token", requestIDFromContext(r.Context()))
				return
			}
			if !allowed[claims.Role] {
				status, code := mapDomainError(domain.ErrForbidden)
				writeError(w, status, code, "insufficient role", requestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func withActor(ctx context.Context, claims ports.ActorClaims) context.Context {
	actor := application.Actor{
		SubjectID: claims.SubjectID,
		Role:      claims.Role,
		RequestID: requestIDFromContext(ctx),
	}
	return context.WithValue(ctx, actorKey, actor)
}

func actorFromContext(ctx context.Context) application.Actor {
	if v := ctx.Value(actorKey); v != nil {
		if a, ok := v.(application.Actor); ok {
			return a
		}
	}
	return application.Actor{Role: application.RoleViewer}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
