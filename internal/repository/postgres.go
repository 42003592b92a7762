package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/FalixNodes/falixpanel/internal/server"
)

// Querier is the subset of *sqlx.DB the repository needs
type Querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// PostgresConfig holds panel database connection settings
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GetDSN returns the lib/pq connection string
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

const selectServers = `SELECT s.id, s.uuid, s.name, s.node_id,
	n.id AS "node.id", n.name AS "node.name", n.fqdn AS "node.fqdn", n.scheme AS "node.scheme",
	n."daemonListen" AS "node.daemon_listen", n."daemonSecret" AS "node.daemon_secret"
FROM servers s
JOIN nodes n ON n.id = s.node_id`

// PostgresRepository reads servers straight from the panel database
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository wraps an existing connection
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects to the panel database
func OpenPostgres(cfg PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDSN())
	if err != nil {
		return nil, errors.Wrapf(err, "connect to panel database %s:%d", cfg.Host, cfg.Port)
	}
	return db, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id int) (server.Server, error) {
	var s server.Server
	err := r.db.GetContext(ctx, &s, selectServers+` WHERE s.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return server.Server{}, errors.Wrapf(ErrNotFound, "server %d", id)
	}
	if err != nil {
		return server.Server{}, errors.Wrapf(err, "query server %d", id)
	}
	return s, nil
}

func (r *PostgresRepository) ListByNode(ctx context.Context, nodeID int) ([]server.Server, error) {
	var servers []server.Server
	if err := r.db.SelectContext(ctx, &servers, selectServers+` WHERE s.node_id = $1 ORDER BY s.id`, nodeID); err != nil {
		return nil, errors.Wrapf(err, "query servers on node %d", nodeID)
	}
	return servers, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]server.Server, error) {
	var servers []server.Server
	if err := r.db.SelectContext(ctx, &servers, selectServers+` ORDER BY s.id`); err != nil {
		return nil, errors.Wrap(err, "query servers")
	}
	return servers, nil
}
