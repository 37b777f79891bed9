package inventory

import (
	"context"
	"sync"
)

// CredentialStore persists the session credential between processes.
// Load returns (nil, nil) when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process CredentialStore.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
}

func (m *MemoryStore) Load(context.Context) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *MemoryStore) Save(_ context.Context, cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = &cred
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cred = nil
	return nil
}
