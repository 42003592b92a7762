package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FalixNodes/falixpanel/internal/config"
	"github.com/FalixNodes/falixpanel/internal/daemon"
	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/logging"
	"github.com/FalixNodes/falixpanel/internal/repository"
)

var (
	// Build-time variables (set via -ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// app bundles the process streams and the constructors for external
// collaborators; tests swap the constructors for in-memory fakes
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	loadConfig    func(opts ...config.Option) (*config.Config, error)
	newRepository func(cfg *config.Config) (repository.ServerRepository, func(), error)
	newClient     func(cfg *config.Config, logger *logging.Logger) daemon.Client
}

func newApp() *app {
	return &app{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		loadConfig: func(opts ...config.Option) (*config.Config, error) {
			return config.NewManager(opts...).Load()
		},
		newRepository: openRepository,
		newClient: func(cfg *config.Config, logger *logging.Logger) daemon.Client {
			return daemon.NewClient(daemon.Config{
				Timeout:        cfg.Daemon.Timeout,
				ConnectTimeout: cfg.Daemon.ConnectTimeout,
			}, logger)
		},
	}
}

// openRepository connects the configured server store
func openRepository(cfg *config.Config) (repository.ServerRepository, func(), error) {
	switch cfg.Source {
	case "inventory":
		return repository.NewInventoryRepository(cfg.Inventory), func() {}, nil
	default:
		db, err := repository.OpenPostgres(repository.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresRepository(db), func() { _ = db.Close() }, nil
	}
}

func main() {
	a := newApp()
	root := newRootCmd(a)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(a.errOut, "Error:", err)
		os.Exit(getExitCode(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "panelctl",
		Short: "Administrative commands for the game server panel",
		Long: `panelctl runs administrative actions against the servers managed by the
panel, talking to each node's daemon directly.

Examples:
  # Reinstall one server
  panelctl server reinstall 12

  # Reinstall every server on node 3 without prompting
  panelctl server reinstall --node 3 --force

  # Reinstall every server, reading database credentials from the panel .env
  panelctl server reinstall --env-file /var/www/pterodactyl/.env`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "panelctl %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildTime)
		},
	})

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Manage servers",
	}
	serverCmd.AddCommand(newReinstallCmd(a))
	root.AddCommand(serverCmd)

	return root
}

// SetupError represents an error during setup/configuration (exit code 2)
type SetupError struct {
	Message string
}

func (e *SetupError) Error() string {
	return e.Message
}

// getExitCode determines the appropriate exit code based on error type
// Returns:
//   - 0: Success, including batches where some servers failed
//   - 1: Unexpected runtime failure
//   - 2: Invalid arguments or setup error
func getExitCode(err error) int {
	if err == nil {
		return 0
	}
	if perrors.IsInvalidArgument(err) {
		return 2
	}
	if _, ok := err.(*SetupError); ok {
		return 2
	}
	return 1
}
