package invtest

import (
	"net/http"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/gorilla/mux"
)

func (b *Backend) routes(r *mux.Router) {
	r.HandleFunc("/login", b.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/refresh", b.handleRefresh).Methods(http.MethodPost)

	anyRole := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.AuthnMiddleware(b.verifier), b.requireActive)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.AuthnMiddleware(b.verifier), b.requireActive, httpx.RequireRole(RoleAdmin))
	}

	s := r.PathPrefix("/servers").Subrouter()
	s.Handle("", anyRole(b.handleListServers)).Methods(http.MethodGet)
	s.Handle("", admin(b.handleCreateServer)).Methods(http.MethodPost)
	s.Handle("/status", anyRole(b.handleServerStatus)).Methods(http.MethodGet)
	s.Handle("/export", anyRole(b.handleExport)).Methods(http.MethodGet)
	s.Handle("/import", admin(b.handleImport)).Methods(http.MethodPost)
	s.Handle("/report", anyRole(b.handleReport)).Methods(http.MethodGet)
	s.Handle("/{id:[0-9]+}/uptime", anyRole(b.handleUptime)).Methods(http.MethodGet)
	s.Handle("/{id:[0-9]+}", admin(b.handleUpdateServer)).Methods(http.MethodPatch, http.MethodPut)
	s.Handle("/{id:[0-9]+}", admin(b.handleDeleteServer)).Methods(http.MethodDelete)

	u := r.PathPrefix("/users").Subrouter()
	u.Handle("/list", admin(b.handleListUsers)).Methods(http.MethodGet)
	u.Handle("/username/{username}", anyRole(b.handleGetUserByUsername)).Methods(http.MethodGet)
	u.Handle("/{id:[0-9]+}", admin(b.handleGetUser)).Methods(http.MethodGet)
	u.Handle("", admin(b.handleCreateUser)).Methods(http.MethodPost)
	u.Handle("/{id:[0-9]+}", admin(b.handleUpdateUser)).Methods(http.MethodPatch, http.MethodPut)
	u.Handle("/{id:[0-9]+}", admin(b.handleDeleteUser)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteMessage(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// requireActive rejects tokens revoked by ExpireTokens. It runs after
// AuthnMiddleware has verified the signature and expiry.
func (b *Backend) requireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok || !b.tokenActive(claims.ID) {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="token expired"`)
			httpx.WriteMessage(w, http.StatusUnauthorized, "token expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}
