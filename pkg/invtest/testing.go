package invtest

import (
	"net/http/httptest"
	"testing"
)

// Start runs a Backend on a local listener until the test ends. The
// returned backend's URL is the API base to hand to inventory.New.
func Start(tb testing.TB, opts ...Option) *Backend {
	tb.Helper()

	b, err := New(opts...)
	if err != nil {
		tb.Fatalf("invtest: %v", err)
	}

	srv := httptest.NewServer(b)
	tb.Cleanup(srv.Close)

	b.URL = srv.URL + "/api"
	return b
}

// MustAddUser is AddUser for test setup.
func (b *Backend) MustAddUser(tb testing.TB, username, password, role string) {
	tb.Helper()
	if _, err := b.AddUser(username, password, role); err != nil {
		tb.Fatalf("invtest: %v", err)
	}
}
