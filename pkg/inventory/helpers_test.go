package inventory_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/invtest"
	"github.com/stretchr/testify/require"
)

const (
	adminUser = "admin"
	adminPass = "correct horse battery staple"
)

// setup starts a backend with one admin account and returns a logged-in client.
func setup(t *testing.T, backendOpts []invtest.Option, sessionOpts ...inventory.SessionOption) (*invtest.Backend, *inventory.Client) {
	t.Helper()

	b := invtest.Start(t, backendOpts...)
	b.MustAddUser(t, adminUser, adminPass, invtest.RoleAdmin)

	client, err := inventory.New(b.URL, inventory.NewSession(sessionOpts...))
	require.NoError(t, err)

	_, err = client.Auth.Login(context.Background(), adminUser, adminPass)
	require.NoError(t, err)
	return b, client
}
