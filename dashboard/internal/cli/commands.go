package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldwatch/fieldwatch/dashboard/internal/render"
	"github.com/fieldwatch/fieldwatch/dashboard/internal/view"
	"github.com/fieldwatch/fieldwatch/pkg/types"
)

func newKeysCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the sections the API serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := opts.client().Keys(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				b, err := json.Marshal(types.Index{AvailableKeys: keys})
				if err != nil {
					return err
				}
				return render.JSON(cmd.OutOrStdout(), b)
			}
			return render.Keys(cmd.OutOrStdout(), keys)
		},
	}
}

// newSectionCmd shows one read-only section.
func newSectionCmd(opts *options, key types.Key, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := load(cmd.Context(), view.New(key, opts.client(), nil))
			if err != nil {
				return err
			}
			if opts.asJSON {
				return render.JSON(cmd.OutOrStdout(), st.Data)
			}
			return render.Key(cmd.OutOrStdout(), key, st.Data)
		},
	}
}

func newDashboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Current readings and AI recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d := view.NewDashboard(opts.client(), view.DashboardOptions{TickInterval: time.Hour})
			d.Mount(ctx)
			defer d.Unmount()
			if err := waitDashboard(ctx, d); err != nil {
				return err
			}
			st := d.State()
			if opts.asJSON {
				return render.JSON(cmd.OutOrStdout(), st.Data)
			}
			return render.Dashboard(cmd.OutOrStdout(), st)
		},
	}
}

func newScheduleCmd(opts *options) *cobra.Command {
	var toggles []int
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Recurring irrigation cycles",
		Long: `Shows the recurring irrigation cycles. --toggle flips a cycle's active flag
in the local copy before printing; nothing is written back to the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := view.NewSchedule(opts.client(), nil)
			s.Mount(ctx)
			defer s.Unmount()
			select {
			case <-s.Settled():
			case <-ctx.Done():
				return ctx.Err()
			}
			if _, err := settledState(ctx, s.State()); err != nil {
				return err
			}
			for _, id := range toggles {
				if _, err := s.ToggleRecurring(id); err != nil {
					return err
				}
			}
			data := s.State().Data
			if opts.asJSON {
				return render.JSON(cmd.OutOrStdout(), data)
			}
			return render.Schedule(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().IntSliceVar(&toggles, "toggle", nil, "recurring cycle id to toggle locally (repeatable)")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	var (
		interval    time.Duration
		irrigateFor time.Duration
		duration    time.Duration
		irrigate    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard readings with simulated sensor drift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			updates := make(chan view.DashboardState, 1)
			d := view.NewDashboard(opts.client(), view.DashboardOptions{
				TickInterval: interval,
				IrrigateFor:  irrigateFor,
				OnChange: func(st view.DashboardState) {
					// Keep only the latest state if rendering falls behind.
					select {
					case <-updates:
					default:
					}
					updates <- st
				},
			})
			d.Mount(ctx)
			defer d.Unmount()

			if err := waitDashboard(ctx, d); err != nil {
				return err
			}
			if irrigate {
				if err := d.StartIrrigation(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case st := <-updates:
					if st.Status != view.StatusReady {
						continue
					}
					if opts.asJSON {
						if err := render.JSON(out, st.Data); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintln(out)
					if err := render.Dashboard(out, st); err != nil {
						return err
					}
				}
			}
		},
	}
	f := cmd.Flags()
	f.DurationVar(&interval, "interval", view.DefaultTickInterval, "simulation step")
	f.DurationVar(&irrigateFor, "irrigate-for", view.DefaultIrrigateFor, "how long a simulated irrigation run lasts")
	f.DurationVar(&duration, "for", 0, "stop after this long (0 runs until interrupted)")
	f.BoolVar(&irrigate, "irrigate", false, "start a simulated irrigation run once loaded")
	return cmd
}

func waitDashboard(ctx context.Context, d *view.Dashboard) error {
	select {
	case <-d.Settled():
	case <-ctx.Done():
		return ctx.Err()
	}
	st := d.State()
	switch st.Status {
	case view.StatusReady:
		return nil
	case view.StatusFailed:
		return errors.New(st.Err)
	default:
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%s: load did not complete", types.KeyDashboard)
	}
}
