// Package bulk runs one remote action across a batch of servers, one server at a time.
package bulk

import (
	"context"
	"time"

	"github.com/FalixNodes/falixpanel/internal/daemon"
	perrors "github.com/FalixNodes/falixpanel/internal/errors"
	"github.com/FalixNodes/falixpanel/internal/logging"
	"github.com/FalixNodes/falixpanel/internal/messages"
	"github.com/FalixNodes/falixpanel/internal/progress"
	"github.com/FalixNodes/falixpanel/internal/server"
)

// Failure is one server whose action failed
type Failure struct {
	Server  server.Server
	Err     *perrors.ActionError
	Message string
}

// Report summarises a finished batch
type Report struct {
	Attempted int
	Succeeded int
	Failures  []Failure
	Duration  time.Duration
	Errors    *perrors.ErrorCollector
}

// NewReport returns an empty report, the summary of a batch with no servers
func NewReport() *Report {
	return &Report{
		Failures: []Failure{},
		Errors:   perrors.NewErrorCollector(),
	}
}

// Failed returns the number of failed servers
func (r *Report) Failed() int {
	return len(r.Failures)
}

// Runner drives the daemon client over a batch
type Runner struct {
	client   daemon.Client
	reporter progress.Reporter
	printer  *messages.Printer
	logger   *logging.Logger
}

// NewRunner wires a runner from its collaborators. logger may be nil.
func NewRunner(client daemon.Client, reporter progress.Reporter, printer *messages.Printer, logger *logging.Logger) *Runner {
	if printer == nil {
		printer = messages.New("en")
	}
	return &Runner{
		client:   client,
		reporter: reporter,
		printer:  printer,
		logger:   logger,
	}
}

// Run reinstalls every server in order. A failing server is reported and the
// batch moves on; Run itself never fails. ctx is handed to each daemon call
// only, the loop always visits every server.
func (r *Runner) Run(ctx context.Context, servers []server.Server) *Report {
	startTime := time.Now()
	report := NewReport()

	if r.logger != nil {
		r.logger.LogBatchStart(len(servers))
	}
	r.reporter.Start(len(servers))

	for _, s := range servers {
		r.reporter.Clear()
		report.Attempted++

		callStart := time.Now()
		if err := r.client.Reinstall(ctx, s); err != nil {
			ae := perrors.ClassifyTransport(err)
			msg := r.printer.ReinstallFailedLine(s, ae.Error())

			report.Failures = append(report.Failures, Failure{Server: s, Err: ae, Message: msg})
			report.Errors.Add(ae)
			r.reporter.Error(msg)
			if r.logger != nil {
				r.logger.LogReinstallError(s, ae, ae.Type.String(), time.Since(callStart))
			}
		} else {
			report.Succeeded++
			if r.logger != nil {
				r.logger.LogReinstall(s, time.Since(callStart))
			}
		}

		r.reporter.Advance()
	}

	r.reporter.Finish()
	report.Duration = time.Since(startTime)

	if r.logger != nil {
		r.logger.LogBatchComplete(report.Attempted, report.Succeeded, report.Failed(), report.Duration, report.Errors.Summary())
		if report.Errors.HasErrors() {
			r.logger.Warn("some servers were not reinstalled", "failed", report.Errors.Count())
		}
	}
	return report
}
