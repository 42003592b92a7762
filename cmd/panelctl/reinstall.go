package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FalixNodes/falixpanel/internal/bulk"
	"github.com/FalixNodes/falixpanel/internal/config"
	"github.com/FalixNodes/falixpanel/internal/confirm"
	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/logging"
	"github.com/FalixNodes/falixpanel/internal/messages"
	"github.com/FalixNodes/falixpanel/internal/output"
	"github.com/FalixNodes/falixpanel/internal/progress"
	"github.com/FalixNodes/falixpanel/internal/selector"
)

type reinstallOptions struct {
	node       string
	force      bool
	quiet      bool
	output     string
	locale     string
	configFile string
	envFile    string
	noProgress bool
}

func newReinstallCmd(a *app) *cobra.Command {
	opts := &reinstallOptions{}

	cmd := &cobra.Command{
		Use:   "reinstall [server]",
		Short: "Reinstall a single server, all servers on a node, or all servers on the panel",
		Long: `Reinstall a single server, all servers on a node, or all servers on the panel.

Servers are processed one at a time. A server whose daemon call fails is
reported and the batch continues with the next server.

With --output json, stdout carries only the summary object; the prompt,
progress and failure lines go to stderr.

Environment:
  ` + strings.Join(config.GetEnvVarNames(), "\n  "),
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return perrors.NewInvalidArgument("server argument", fmt.Sprint(args),
					fmt.Sprintf("accepts at most one server id, received %d arguments", len(args)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var rawServer string
			if len(args) == 1 {
				rawServer = args[0]
			}
			return runReinstall(cmd.Context(), a, cmd, rawServer, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return perrors.NewInvalidArgument("flags", "", err.Error())
	})

	cmd.Flags().StringVar(&opts.node, "node", "", "ID of the node to reinstall all servers on. Ignored if server is passed.")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Do not ask for confirmation")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress and informational logs")
	cmd.Flags().StringVar(&opts.output, "output", "", "Summary format (text, json)")
	cmd.Flags().StringVar(&opts.locale, "locale", "", "Language for operator messages (en, de)")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "Path to a panelctl config file")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to the panel .env file for database credentials")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Do not render the progress bar")

	return cmd
}

func runReinstall(ctx context.Context, a *app, cmd *cobra.Command, rawServer string, opts *reinstallOptions) error {
	// Arguments are checked before configuration, store or daemon are touched.
	criteria, err := selector.ParseCriteria(rawServer, opts.node)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig(configOptions(opts)...)
	if err != nil {
		return &SetupError{Message: fmt.Sprintf("failed to load configuration: %v", err)}
	}
	applyFlags(cmd, cfg, opts)

	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return &SetupError{Message: err.Error()}
	}

	logger := logging.NewLoggerFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.Quiet, a.errOut)
	logger.LogConfigLoad(configSource(opts))

	repo, closeRepo, err := a.newRepository(cfg)
	if err != nil {
		logger.LogConfigError("server store", err)
		return &SetupError{Message: fmt.Sprintf("failed to open server store: %v", err)}
	}
	defer closeRepo()

	servers, err := selector.New(repo, logger).Select(ctx, criteria)
	if err != nil {
		if perrors.IsInvalidArgument(err) {
			return err
		}
		return &SetupError{Message: err.Error()}
	}

	printer := messages.New(cfg.Locale)
	logger.Debug("operator locale", "requested", cfg.Locale, "resolved", printer.Language().String())

	formatter := output.NewFormatter(mode, a.out)
	if len(servers) == 0 {
		if mode == output.JSONMode {
			fmt.Fprintln(a.errOut, printer.NothingToReinstall())
			return writeSummary(formatter, bulk.NewReport(), logger)
		}
		fmt.Fprintln(a.out, printer.NothingToReinstall())
		return nil
	}

	promptOut := a.out
	if mode == output.JSONMode {
		promptOut = a.errOut
	}
	var gate confirm.Gate = confirm.NewPrompt(a.in, promptOut)
	if opts.force {
		gate = confirm.Always{}
	}
	ok, err := gate.Confirm(printer.ReinstallConfirmPrompt())
	if err != nil {
		return &SetupError{Message: err.Error()}
	}
	if !ok {
		logger.Info("reinstall declined by operator", "servers", len(servers))
		return nil
	}

	runner := bulk.NewRunner(a.newClient(cfg, logger), newReporter(a, cfg, logger, mode), printer, logger)
	report := runner.Run(ctx, servers)

	return writeSummary(formatter, report, logger)
}

func writeSummary(f output.Formatter, report *bulk.Report, logger *logging.Logger) error {
	if err := f.Summary(report); err != nil {
		logger.Error("Failed to write summary", "error", err)
	}
	return nil
}

// newReporter keeps stdout machine-readable in json mode
func newReporter(a *app, cfg *config.Config, logger *logging.Logger, mode output.OutputMode) progress.Reporter {
	if mode == output.JSONMode {
		return progress.NewLines(a.errOut)
	}
	if logger.IsQuiet() || !cfg.Progress {
		return progress.NewLines(a.out)
	}
	return progress.NewBar(a.out, a.out)
}

func configOptions(opts *reinstallOptions) []config.Option {
	var out []config.Option
	if opts.configFile != "" {
		out = append(out, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		out = append(out, config.WithEnvFile(opts.envFile))
	}
	return out
}

func configSource(opts *reinstallOptions) string {
	if opts.configFile != "" {
		return opts.configFile
	}
	return "default search paths and environment"
}

// applyFlags overrides configuration with CLI flags that were explicitly set
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *reinstallOptions) {
	if cmd.Flags().Changed("quiet") {
		cfg.Quiet = opts.quiet
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = opts.output
	}
	if cmd.Flags().Changed("locale") {
		cfg.Locale = opts.locale
	}
	if cmd.Flags().Changed("no-progress") {
		cfg.Progress = !opts.noProgress
	}
}
