package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/internal/service"
	"github.com/veletic/gatehouse/internal/http/response"
	"github.com/veletic/gatehouse/pkg/logger"
)

type ctxKey string

const (
	CtxUser    ctxKey = "user"
	CtxSession ctxKey = "session"
)

const (
	SessionCookie      = "gatehouse_session"
	AdminSessionCookie = "gatehouse_admin_session"
)

// tokenFromRequest prefers the session cookie and falls back to a bearer
// header for non-browser clients.
func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

// RequireSession validates the staff session token, renewing it as a side
// effect, and stores the session and user on the request context.
func RequireSession(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, SessionCookie)
			session, user, err := auth.ValidateToken(r.Context(), token)
			if err != nil {
				response.WriteDomainError(w, r, err)
				return
			}
			if session == nil {
				response.Unauthorized(w, "Authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), CtxSession, session)
			ctx = context.WithValue(ctx, CtxUser, user)
			ctx = context.WithValue(ctx, logger.ActorKey, user.Username)
			ctx = context.WithValue(ctx, logger.BuildingKey, session.Building)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminSession validates the admin panel token.
func RequireAdminSession(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, AdminSessionCookie)
			session, err := auth.ValidateAdminToken(r.Context(), token)
			if err != nil {
				response.WriteDomainError(w, r, err)
				return
			}
			if session == nil {
				response.Unauthorized(w, "Admin authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), logger.ActorKey, "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom returns the authenticated session placed by RequireSession.
func SessionFrom(r *http.Request) *domain.Session {
	if v := r.Context().Value(CtxSession); v != nil {
		if s, ok := v.(*domain.Session); ok {
			return s
		}
	}
	return nil
}

// UserFrom returns the authenticated user placed by RequireSession.
func UserFrom(r *http.Request) *domain.User {
	if v := r.Context().Value(CtxUser); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
