package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/server/auth"
	"github.com/fleetops/contractd/internal/server/models"
)

type contextKey int

const userContextKey contextKey = iota

// identityHeaders are checked in priority order after the Authorization
// header. They match the headers the WeChat/TCB gateways inject.
var identityHeaders = []string{"x-wx-openid", "x-tcb-openid", "x-openid", "x-dev-openid"}

// externalIdentity extracts the caller identity: a verified bearer token
// subject wins, then gateway headers, then the openId query parameter,
// then the configured mock identity. An unverifiable token is treated as
// absent rather than rejected, so gateway headers still apply.
func (rt *Router) externalIdentity(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		subject, err := auth.IdentityFromToken(strings.TrimPrefix(h, "Bearer "), rt.secretKey)
		if err == nil && subject != "" {
			return subject
		}
	}

	for _, name := range identityHeaders {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}

	if v := r.URL.Query().Get("openId"); v != "" {
		return v
	}

	return rt.mockIdentity
}

// withUser resolves the caller to a user record (provisioning lazily) and
// stores it in the request context.
func (rt *Router) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		externalID := rt.externalIdentity(r)
		if externalID == "" {
			writeError(w, http.StatusUnauthorized, "缺少 openId，无法识别用户身份")
			return
		}

		user, err := rt.identity.Resolve(r.Context(), externalID)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "缺少 openId，无法识别用户身份")
				return
			}
			rt.logger.Error(r.Context(), "identity resolution failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "用户鉴权失败")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext returns the resolved user; nil outside withUser.
func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
