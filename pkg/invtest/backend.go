// Package invtest is an in-memory inventory backend for tests and local
// development. It serves every endpoint the inventory client uses under /api,
// issues EdDSA-signed JWTs with opaque refresh tokens, and exposes hooks to
// force token expiry or refresh failures.
package invtest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/cryptox"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/jwtx"
	"github.com/aussiebroadwan/inventory/pkg/slogx"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
)

const (
	Issuer = "inventory-mock"

	RoleAdmin = "admin"
	RoleUser  = "user"

	// DefaultAccessTTL is the lifetime of issued access tokens.
	DefaultAccessTTL = jwtx.DefaultAccessTokenTTL
)

// RecordedRequest is what the backend saw of one incoming request.
type RecordedRequest struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization []string
	ContentType   string
}

// Upload is the last multipart import received.
type Upload struct {
	Field    string
	Filename string
	Data     []byte
}

// Report is a mail report request.
type Report struct {
	Start string
	End   string
	Mail  string
}

type account struct {
	user         inventory.User
	passwordHash string
}

// Backend is the fake inventory service. Use Start in tests, or serve it
// directly with an http.Server.
type Backend struct {
	// URL is the API base (ending in /api) once started with Start.
	URL string

	clock      clockwork.Clock
	accessTTL  time.Duration
	logger     *slog.Logger
	hashParams cryptox.Params

	signer   jwtx.Signer
	verifier jwtx.Verifier
	handler  http.Handler

	refreshDelay time.Duration
	refreshCalls atomic.Int32
	loginCalls   atomic.Int32
	failRefresh  atomic.Bool

	mu           sync.Mutex
	users        map[uint]*account
	nextUserID   uint
	servers      map[uint]*inventory.Server
	nextServerID uint
	uptime       map[uint]float64
	active       map[string]struct{} // jti of unrevoked access tokens
	refresh      map[string]uint     // refresh token -> user id
	requests     []RecordedRequest
	reports      []Report
	lastImport   *Upload
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock drives token issue and expiry from c.
func WithClock(c clockwork.Clock) Option {
	return func(b *Backend) { b.clock = c }
}

func WithAccessTTL(d time.Duration) Option {
	return func(b *Backend) { b.accessTTL = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithPasswordParams sets the Argon2id cost for stored passwords. Defaults to
// cryptox.FastParams.
func WithPasswordParams(p cryptox.Params) Option {
	return func(b *Backend) { b.hashParams = p }
}

// WithRefreshDelay holds every refresh call for d before answering.
func WithRefreshDelay(d time.Duration) Option {
	return func(b *Backend) { b.refreshDelay = d }
}

// New creates an empty backend with a fresh signing key.
func New(opts ...Option) (*Backend, error) {
	b := &Backend{
		clock:        clockwork.NewRealClock(),
		accessTTL:    DefaultAccessTTL,
		logger:       slogx.Discard(),
		hashParams:   cryptox.FastParams,
		users:        make(map[uint]*account),
		nextUserID:   1,
		servers:      make(map[uint]*inventory.Server),
		nextServerID: 1,
		uptime:       make(map[uint]float64),
		active:       make(map[string]struct{}),
		refresh:      make(map[string]uint),
	}
	for _, opt := range opts {
		opt(b)
	}

	signer, err := jwtx.NewSignerEdDSA("invtest-1")
	if err != nil {
		return nil, err
	}
	verifier := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), Issuer, nil)
	verifier.Now = b.clock.Now
	b.signer, b.verifier = signer, verifier

	r := mux.NewRouter()
	b.routes(r.PathPrefix("/api").Subrouter())
	b.handler = slogx.HTTPMiddleware(b.logger)(r)

	return b, nil
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawQuery:      r.URL.RawQuery,
		Authorization: slices.Clone(r.Header.Values("Authorization")),
		ContentType:   r.Header.Get("Content-Type"),
	})
	b.mu.Unlock()

	b.handler.ServeHTTP(w, r)
}

// ============================================================================
// Seeding and inspection
// ============================================================================

// AddUser creates an account that can log in.
func (b *Backend) AddUser(username, password, role string) (inventory.User, error) {
	hash, err := b.hashParams.Hash(password)
	if err != nil {
		return inventory.User{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findUserLocked(username) != nil {
		return inventory.User{}, fmt.Errorf("invtest: user %q exists", username)
	}
	u := inventory.User{
		ID:       b.nextUserID,
		Username: username,
		FullName: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	b.nextUserID++
	b.users[u.ID] = &account{user: u, passwordHash: hash}
	return u, nil
}

// AddServer stores a server as if created through the API.
func (b *Backend) AddServer(req inventory.CreateServerRequest) inventory.Server {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, _ := b.createServerLocked(req)
	return s
}

// SetUptime fixes the hours reported by the uptime endpoint for server id.
func (b *Backend) SetUptime(id uint, hours float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uptime[id] = hours
}

// Servers returns the stored servers ordered by ID.
func (b *Backend) Servers() []inventory.Server {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedServersLocked()
}

// ExpireTokens revokes every access token issued so far. Refresh tokens stay
// valid.
func (b *Backend) ExpireTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.active)
}

// FailRefresh makes the refresh endpoint answer 401 while fail is true.
func (b *Backend) FailRefresh(fail bool) { b.failRefresh.Store(fail) }

// RefreshCalls counts requests to the refresh endpoint.
func (b *Backend) RefreshCalls() int { return int(b.refreshCalls.Load()) }

// LoginCalls counts requests to the login endpoint.
func (b *Backend) LoginCalls() int { return int(b.loginCalls.Load()) }

// Requests returns every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// RequestsTo returns the recorded requests for one method and path.
func (b *Backend) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) Reports() []Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.reports)
}

func (b *Backend) LastImport() (Upload, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastImport == nil {
		return Upload{}, false
	}
	return *b.lastImport, true
}

// ============================================================================
// Tokens
// ============================================================================

type tokenResponse struct {
	Token        string `json:"token"`
	ExpireTime   string `json:"expireTime"`
	TypeToken    string `json:"typeToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// issueLocked signs an access token for u and marks it active.
func (b *Backend) issueLocked(u inventory.User) (tokenResponse, error) {
	now := b.clock.Now()
	claims := jwtx.NewAccessClaims(strconv.FormatUint(uint64(u.ID), 10), u.Username, u.Role, b.accessTTL, Issuer, nil, now)

	token, err := b.signer.Sign(claims)
	if err != nil {
		return tokenResponse{}, err
	}
	b.active[claims.ID] = struct{}{}

	return tokenResponse{
		Token:      token,
		ExpireTime: claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		TypeToken:  "Bearer",
	}, nil
}

func (b *Backend) newRefreshTokenLocked(userID uint) string {
	rt := uuid.NewString()
	b.refresh[rt] = userID
	return rt
}

func (b *Backend) tokenActive(jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.active[jti]
	return ok
}

func (b *Backend) waitRefreshDelay(ctx context.Context) {
	if b.refreshDelay <= 0 {
		return
	}
	select {
	case <-time.After(b.refreshDelay):
	case <-ctx.Done():
	}
}
