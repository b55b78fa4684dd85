// Package cli implements the irrigctl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldwatch/fieldwatch/dashboard/internal/fetch"
	"github.com/fieldwatch/fieldwatch/dashboard/internal/view"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// BaseURLEnv overrides the default API root when --base-url is not given.
const BaseURLEnv = "API_BASE_URL"

type options struct {
	baseURL string
	asJSON  bool
	timeout time.Duration
}

// NewRootCmd builds the irrigctl command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "irrigctl",
		Short: "irrigctl: terminal dashboard for the fieldwatch irrigation API",
		Long: `irrigctl reads the fieldwatch Key-Value API and renders each section of the
irrigation dashboard as a table.

Quick start:
  irrigctl keys                     # list available sections
  irrigctl dashboard                # current readings and recommendations
  irrigctl watch --irrigate         # live readings with a simulated irrigation run`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	defaultBase := os.Getenv(BaseURLEnv)
	if defaultBase == "" {
		defaultBase = fetch.DefaultBaseURL
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.baseURL, "base-url", defaultBase, "API root (env "+BaseURLEnv+")")
	pf.BoolVar(&opts.asJSON, "json", false, "print the raw sub-document as JSON")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP client timeout")

	root.AddCommand(
		newKeysCmd(opts),
		newDashboardCmd(opts),
		newScheduleCmd(opts),
		newSectionCmd(opts, types.KeyAlert, "alerts", "Active alerts and their summary"),
		newSectionCmd(opts, types.KeyReports, "reports", "Water usage and efficiency reports"),
		newSectionCmd(opts, types.KeySettings, "settings", "Farm and notification settings"),
		newWatchCmd(opts),
	)
	return root
}

// Execute runs the command tree against os.Args and exits non-zero on error.
func Execute(ctx context.Context) {
	if err := NewRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) client() *fetch.Client {
	return fetch.New(o.baseURL, &http.Client{Timeout: o.timeout})
}

// load mounts v, waits for it to settle and unmounts it again.
func load(ctx context.Context, v *view.View) (view.State, error) {
	v.Mount(ctx)
	defer v.Unmount()
	select {
	case <-v.Settled():
	case <-ctx.Done():
		return view.State{}, ctx.Err()
	}
	return settledState(ctx, v.State())
}

func settledState(ctx context.Context, st view.State) (view.State, error) {
	switch st.Status {
	case view.StatusReady:
		return st, nil
	case view.StatusFailed:
		return st, errors.New(st.Err)
	default:
		// Only an aborted load leaves the view loading.
		if err := ctx.Err(); err != nil {
			return st, err
		}
		return st, fmt.Errorf("%s: load did not complete", st.Key)
	}
}
