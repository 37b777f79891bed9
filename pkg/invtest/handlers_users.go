package invtest

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/gorilla/mux"
)

// handleListUsers serves GET /api/users/list.
func (b *Backend) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	users := make([]inventory.User, 0, len(b.users))
	for _, a := range b.users {
		users = append(users, a.user)
	}
	b.mu.Unlock()

	slices.SortFunc(users, func(x, y inventory.User) int { return cmp.Compare(x.ID, y.ID) })
	httpx.WriteJSON(w, http.StatusOK, inventory.ListUsersResponse{Data: users, Total: len(users)})
}

// handleGetUserByUsername serves GET /api/users/username/{username}. Non-admins
// may only look themselves up.
func (b *Backend) handleGetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	claims, _ := httpx.ClaimsFromContext(r.Context())
	if claims.Role != RoleAdmin && claims.Username != username {
		httpx.WriteMessage(w, http.StatusForbidden, "insufficient role")
		return
	}

	b.mu.Lock()
	acct := b.findUserLocked(username)
	b.mu.Unlock()

	if acct == nil {
		httpx.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct.user)
}

// handleGetUser serves GET /api/users/{id}.
func (b *Backend) handleGetUser(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	acct := b.users[pathID(r)]
	b.mu.Unlock()

	if acct == nil {
		httpx.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct.user)
}

// handleCreateUser serves POST /api/users.
func (b *Backend) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req inventory.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}
	role := cmp.Or(req.Role, RoleUser)
	if role != RoleAdmin && role != RoleUser {
		httpx.WriteMessage(w, http.StatusBadRequest, "role must be admin or user")
		return
	}

	u, err := b.AddUser(req.Username, req.Password, role)
	if err != nil {
		httpx.WriteMessage(w, http.StatusConflict, "username already exists")
		return
	}

	b.mu.Lock()
	acct := b.users[u.ID]
	acct.user.FullName = cmp.Or(req.FullName, u.FullName)
	acct.user.Email = cmp.Or(req.Email, u.Email)
	acct.user.Phone = req.Phone
	acct.user.Avatar = req.Avatar
	u = acct.user
	b.mu.Unlock()

	httpx.WriteJSON(w, http.StatusCreated, u)
}

// handleUpdateUser serves PATCH|PUT /api/users/{id}.
func (b *Backend) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req inventory.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var hash string
	if req.Password != nil {
		var err error
		if hash, err = b.hashParams.Hash(*req.Password); err != nil {
			httpx.WriteMessage(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acct := b.users[pathID(r)]
	if acct == nil {
		httpx.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&acct.user.FullName, req.FullName)
	set(&acct.user.Email, req.Email)
	set(&acct.user.Phone, req.Phone)
	set(&acct.user.Avatar, req.Avatar)
	set(&acct.user.Role, req.Role)
	if hash != "" {
		acct.passwordHash = hash
	}

	httpx.WriteJSON(w, http.StatusOK, acct.user)
}

// handleDeleteUser serves DELETE /api/users/{id}.
func (b *Backend) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.users[id]; !ok {
		httpx.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	delete(b.users, id)
	for rt, uid := range b.refresh {
		if uid == id {
			delete(b.refresh, rt)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) findUserLocked(username string) *account {
	for _, a := range b.users {
		if a.user.Username == username {
			return a
		}
	}
	return nil
}
