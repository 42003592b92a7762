// Package repository resolves panel servers from a backing store.
package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/FalixNodes/falixpanel/internal/server"
)

// ErrNotFound is returned by Find when no server has the requested id
var ErrNotFound = errors.New("server not found")

// ServerRepository defines the queries needed to pick servers for a bulk action.
// Every method returns servers with their Node populated, in store order.
type ServerRepository interface {
	// Find returns the server with the given id or ErrNotFound
	Find(ctx context.Context, id int) (server.Server, error)

	// ListByNode returns every server hosted on the node
	ListByNode(ctx context.Context, nodeID int) ([]server.Server, error)

	// List returns every server known to the panel
	List(ctx context.Context) ([]server.Server, error)
}

// MemoryRepository is a fixed in-process server list
type MemoryRepository struct {
	servers []server.Server
}

// NewMemoryRepository creates a repository over the given servers, keeping their order
func NewMemoryRepository(servers ...server.Server) *MemoryRepository {
	return &MemoryRepository{servers: append([]server.Server(nil), servers...)}
}

// Add appends a server to the repository
func (r *MemoryRepository) Add(s server.Server) {
	r.servers = append(r.servers, s)
}

func (r *MemoryRepository) Find(_ context.Context, id int) (server.Server, error) {
	s, ok := lo.Find(r.servers, func(s server.Server) bool { return s.ID == id })
	if !ok {
		return server.Server{}, errors.Wrapf(ErrNotFound, "server %d", id)
	}
	return s, nil
}

func (r *MemoryRepository) ListByNode(_ context.Context, nodeID int) ([]server.Server, error) {
	return lo.Filter(r.servers, func(s server.Server, _ int) bool { return s.NodeID == nodeID }), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]server.Server, error) {
	return append([]server.Server(nil), r.servers...), nil
}
