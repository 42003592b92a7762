package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/FalixNodes/falixpanel/internal/server"
)

// InventoryRepository serves servers from a YAML or JSON inventory file.
// The file is read on every query so edits are picked up between batches.
type InventoryRepository struct {
	path string
}

// NewInventoryRepository creates an inventory-backed repository
func NewInventoryRepository(path string) *InventoryRepository {
	return &InventoryRepository{path: path}
}

// InventoryData represents the structure of an inventory file
type InventoryData struct {
	Nodes []InventoryNode `yaml:"nodes" json:"nodes"`
}

// InventoryNode is a node entry together with the servers it hosts
type InventoryNode struct {
	ID           int               `yaml:"id" json:"id"`
	Name         string            `yaml:"name" json:"name"`
	FQDN         string            `yaml:"fqdn" json:"fqdn"`
	Scheme       string            `yaml:"scheme" json:"scheme"`
	DaemonListen int               `yaml:"daemon_listen" json:"daemon_listen"`
	DaemonSecret string            `yaml:"daemon_secret" json:"daemon_secret"`
	Servers      []InventoryServer `yaml:"servers" json:"servers"`
}

// InventoryServer is a server entry under a node
type InventoryServer struct {
	ID   int    `yaml:"id" json:"id"`
	UUID string `yaml:"uuid" json:"uuid"`
	Name string `yaml:"name" json:"name"`
}

func (r *InventoryRepository) Find(ctx context.Context, id int) (server.Server, error) {
	mem, err := r.load()
	if err != nil {
		return server.Server{}, err
	}
	return mem.Find(ctx, id)
}

func (r *InventoryRepository) ListByNode(ctx context.Context, nodeID int) ([]server.Server, error) {
	mem, err := r.load()
	if err != nil {
		return nil, err
	}
	return mem.ListByNode(ctx, nodeID)
}

func (r *InventoryRepository) List(ctx context.Context) ([]server.Server, error) {
	mem, err := r.load()
	if err != nil {
		return nil, err
	}
	return mem.List(ctx)
}

// load parses the inventory file into an in-memory repository
func (r *InventoryRepository) load() (*MemoryRepository, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read inventory file")
	}

	var data InventoryData

	ext := strings.ToLower(filepath.Ext(r.path))
	switch ext {
	case ".json":
		err = json.Unmarshal(content, &data)
	case ".yml", ".yaml":
		err = yaml.Unmarshal(content, &data)
	default:
		return nil, fmt.Errorf("unsupported inventory file format: %s", ext)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse inventory file")
	}

	return data.toRepository()
}

func (d InventoryData) toRepository() (*MemoryRepository, error) {
	mem := NewMemoryRepository()
	seen := make(map[int]bool)

	for _, n := range d.Nodes {
		node := server.Node{
			ID:           n.ID,
			Name:         n.Name,
			FQDN:         n.FQDN,
			Scheme:       n.Scheme,
			DaemonListen: n.DaemonListen,
			DaemonSecret: n.DaemonSecret,
		}
		for _, s := range n.Servers {
			if seen[s.ID] {
				return nil, fmt.Errorf("duplicate server id %d in inventory", s.ID)
			}
			seen[s.ID] = true
			mem.Add(server.Server{
				ID:     s.ID,
				UUID:   s.UUID,
				Name:   s.Name,
				NodeID: node.ID,
				Node:   node,
			})
		}
	}

	return mem, nil
}
