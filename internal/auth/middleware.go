package auth

import (
	"encoding/json"
	"strings"

	xhttp "github.com/storelab/commerce-gateway/pkg/http"
)

// principalKey is the request-scoped user value under which the verified
// Principal is stored.
const principalKey = "auth.principal"

// PrincipalFrom returns the authenticated principal set by Middleware, or
// nil when the request was not authenticated.
func PrincipalFrom(ctx *xhttp.RequestCtx) *Principal {
	p, _ := ctx.UserValue(principalKey).(*Principal)
	return p
}

// Middleware verifies the bearer token and stores the principal on the
// request. Requests without a valid token are refused with 401.
func Middleware(m *Manager) func(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			token := bearerToken(ctx)
			if token == "" {
				writeAuthError(ctx, xhttp.StatusUnauthorized, "missing bearer token")
				return
			}

			principal, err := m.Parse(token)
			if err != nil {
				writeAuthError(ctx, xhttp.StatusUnauthorized, err.Error())
				return
			}

			ctx.SetUserValue(principalKey, principal)
			next(ctx)
		}
	}
}

// RequireAdmin refuses requests whose principal is not an admin. It must run
// after Middleware.
func RequireAdmin(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		p := PrincipalFrom(ctx)
		if p == nil {
			writeAuthError(ctx, xhttp.StatusUnauthorized, "missing bearer token")
			return
		}
		if p.Role != "admin" {
			writeAuthError(ctx, xhttp.StatusForbidden, "admin role required")
			return
		}
		next(ctx)
	}
}

func bearerToken(ctx *xhttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(ctx *xhttp.RequestCtx, status int, msg string) {
	b, _ := json.Marshal(map[string]string{"message": "error", "error": msg})
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}
