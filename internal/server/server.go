// Package server holds the panel's view of servers and the nodes that host them.
package server

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"

	perrors "github.com/FalixNodes/falixpanel/internal/errors"
)

// Node is a daemon host; every server on it is reached through the same daemon
type Node struct {
	ID           int    `db:"id" yaml:"id" json:"id"`
	Name         string `db:"name" yaml:"name" json:"name"`
	FQDN         string `db:"fqdn" yaml:"fqdn" json:"fqdn"`
	Scheme       string `db:"scheme" yaml:"scheme" json:"scheme"`
	DaemonListen int    `db:"daemon_listen" yaml:"daemon_listen" json:"daemon_listen"`
	DaemonSecret string `db:"daemon_secret" yaml:"daemon_secret" json:"-"`
}

// DaemonBaseURL returns the versioned API root of the node's daemon
func (n Node) DaemonBaseURL() string {
	scheme := n.Scheme
	if scheme == "" {
		scheme = "https"
	}
	port := n.DaemonListen
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s://%s/v1/", scheme, net.JoinHostPort(n.FQDN, strconv.Itoa(port)))
}

// Server is one panel-managed game server. It is treated as immutable for the
// duration of a batch.
type Server struct {
	ID     int    `db:"id" yaml:"id" json:"id"`
	UUID   string `db:"uuid" yaml:"uuid" json:"uuid"`
	Name   string `db:"name" yaml:"name" json:"name"`
	NodeID int    `db:"node_id" yaml:"node_id" json:"node_id"`
	Node   Node   `db:"node" yaml:"-" json:"-"`
}

// String returns a short human-readable reference used in logs
func (s Server) String() string {
	return fmt.Sprintf("%s (#%d)", s.Name, s.ID)
}

// ParseID parses an optional identifier passed on the command line.
// An empty value means "not given" and yields nil. Anything else must be an
// integer-like number (for example "5" or "5.0") and must not be negative.
func ParseID(argument, raw string) (*int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	id, ok := parseIntegerish(value)
	if !ok {
		return nil, perrors.NewInvalidArgument(argument, raw,
			fmt.Sprintf("Value passed in %s must be null or an integer, received %s.", argument, raw))
	}
	if id < 0 {
		return nil, perrors.NewInvalidArgument(argument, raw,
			fmt.Sprintf("Value passed in %s must not be negative, received %s.", argument, raw))
	}

	return &id, nil
}

// Decimal notation only. strconv would also take hex floats and digit separators.
var (
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
	numericPattern = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// Server and node ids are 32-bit columns in the panel database.
const maxID = math.MaxInt32

func parseIntegerish(value string) (int, bool) {
	if integerPattern.MatchString(value) {
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil || i > maxID || i < -maxID {
			return 0, false
		}
		return int(i), true
	}

	if !numericPattern.MatchString(value) {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || f > maxID || f < -maxID {
		return 0, false
	}
	return int(f), true
}

// ValidateID rejects negative identifiers handed in by callers that skip ParseID
func ValidateID(argument string, id *int) error {
	if id != nil && *id < 0 {
		return perrors.NewInvalidArgument(argument, strconv.Itoa(*id),
			fmt.Sprintf("Value passed in %s must not be negative, received %d.", argument, *id))
	}
	return nil
}
