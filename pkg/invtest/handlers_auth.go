package invtest

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/inventory/pkg/cryptox"
	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/slogx"
)

// handleLogin serves POST /api/login.
func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	b.mu.Lock()
	acct := b.findUserLocked(req.Username)
	b.mu.Unlock()

	if acct == nil || cryptox.VerifyPassword(req.Password, acct.passwordHash) != nil {
		httpx.WriteMessage(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	b.mu.Lock()
	resp, err := b.issueLocked(acct.user)
	if err == nil {
		resp.RefreshToken = b.newRefreshTokenLocked(acct.user.ID)
	}
	b.mu.Unlock()

	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to sign token", "error", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// handleRefresh serves POST /api/refresh. Like the real backend it answers
// with a new access token only; the refresh token is not rotated.
func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	b.waitRefreshDelay(r.Context())

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	if b.failRefresh.Load() {
		httpx.WriteMessage(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	userID, ok := b.refresh[req.RefreshToken]
	acct := b.users[userID]
	if !ok || acct == nil {
		httpx.WriteMessage(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	resp, err := b.issueLocked(acct.user)
	if err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
