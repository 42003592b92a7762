// Package selector resolves the servers a bulk action will run against.
package selector

import (
	"context"

	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/logging"
	"github.com/FalixNodes/falixpanel/internal/repository"
	"github.com/FalixNodes/falixpanel/internal/server"
)

// Mode names which selection rule produced a batch
type Mode string

const (
	ByServer Mode = "server"
	ByNode   Mode = "node"
	All      Mode = "all"
)

// Criteria is the resolved selection input. ServerID wins over NodeID.
type Criteria struct {
	ServerID *int
	NodeID   *int
}

// Mode returns the active selection rule
func (c Criteria) Mode() Mode {
	switch {
	case c.ServerID != nil:
		return ByServer
	case c.NodeID != nil:
		return ByNode
	default:
		return All
	}
}

// Selector picks servers from a repository
type Selector struct {
	repo   repository.ServerRepository
	logger *logging.Logger
}

// New creates a selector over repo. logger may be nil.
func New(repo repository.ServerRepository, logger *logging.Logger) *Selector {
	return &Selector{repo: repo, logger: logger}
}

// ParseCriteria validates the raw command line values
func ParseCriteria(rawServer, rawNode string) (Criteria, error) {
	serverID, err := server.ParseID("server argument", rawServer)
	if err != nil {
		return Criteria{}, err
	}
	nodeID, err := server.ParseID("node option", rawNode)
	if err != nil {
		return Criteria{}, err
	}
	return Criteria{ServerID: serverID, NodeID: nodeID}, nil
}

// Select returns the batch for the criteria. The returned slice is a fresh copy
// owned by the caller; a server id that does not exist yields an empty batch.
func (s *Selector) Select(ctx context.Context, c Criteria) ([]server.Server, error) {
	if err := server.ValidateID("server argument", c.ServerID); err != nil {
		return nil, err
	}
	if err := server.ValidateID("node option", c.NodeID); err != nil {
		return nil, err
	}

	var (
		servers []server.Server
		err     error
	)

	switch c.Mode() {
	case ByServer:
		var found server.Server
		found, err = s.repo.Find(ctx, *c.ServerID)
		if perrors.Is(err, repository.ErrNotFound) {
			if s.logger != nil {
				s.logger.LogServerNotFound(*c.ServerID)
			}
			err = nil
			servers = []server.Server{}
		} else if err == nil {
			servers = []server.Server{found}
		}
	case ByNode:
		servers, err = s.repo.ListByNode(ctx, *c.NodeID)
	default:
		servers, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, perrors.Wrap(err, "failed to resolve servers")
	}

	batch := make([]server.Server, len(servers))
	copy(batch, servers)

	if s.logger != nil {
		s.logger.LogSelection(string(c.Mode()), len(batch))
	}
	return batch, nil
}
