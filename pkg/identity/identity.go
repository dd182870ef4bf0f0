// Package identity resolves the persistent client id sent to the chat
// backend with every request.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/factorychat/pkg/storage"
)

// ClientIDKey is the storage key holding the client id.
const ClientIDKey = "factory-chatbot.clientId"

// Provider returns the stored client id, creating and persisting a random
// UUID on first use. The id is cached after the first successful lookup.
type Provider struct {
	store storage.Driver

	mu     sync.Mutex
	cached string
}

func NewProvider(store storage.Driver) *Provider {
	return &Provider{store: store}
}

// ClientID implements chatapi.ClientIDSource.
func (p *Provider) ClientID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	existing, err := p.store.Get(ctx, ClientIDKey)
	switch {
	case err == nil && strings.TrimSpace(existing) != "":
		p.cached = existing
		return existing, nil
	case err != nil && !storage.IsNotFound(err):
		return "", fmt.Errorf("loading client id: %w", err)
	}

	created := uuid.NewString()
	if err := p.store.Set(ctx, ClientIDKey, created); err != nil {
		return "", fmt.Errorf("saving client id: %w", err)
	}

	p.cached = created
	return created, nil
}
