package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calbridge/internal/config"
	"calbridge/internal/domain"
	"calbridge/internal/ics"
	appLog "calbridge/internal/log"
	"calbridge/internal/remind"
	"calbridge/internal/store"
	"calbridge/internal/store/eventkind"
	"calbridge/internal/store/provider"
	"calbridge/internal/usecase"
	"calbridge/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("command failed", err)
		os.Exit(1)
	}
}

type app struct {
	cfg   *config.Config
	svc   *usecase.Service
	loc   *time.Location
	close func()
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "calbridge",
		Short:         "Normalized calendar access over divergent native stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "calbridge.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newCalendarsCmd(&configPath),
		newEventsCmd(&configPath),
		newExportCmd(&configPath),
	)
	return root
}

// setup loads config, applies the log level, opens the configured store
// adapter and wires the use-case service around it.
func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLog.Warn("unknown timezone, falling back to UTC", "timezone", cfg.Timezone)
		loc = time.UTC
	}

	var (
		st      store.Store
		cleanup = func() {}
	)
	switch cfg.Store.Kind {
	case "eventkind":
		var opts []eventkind.Option
		if cfg.Store.Restricted {
			opts = append(opts, eventkind.Restricted())
		}
		st = eventkind.New(opts...)
	default:
		ps, err := provider.Open(cfg.Store.DBPath, cfg.Store.Granted)
		if err != nil {
			return nil, err
		}
		st = ps
		cleanup = func() { _ = ps.Close() }
	}

	return &app{
		cfg:   cfg,
		svc:   usecase.New(st),
		loc:   loc,
		close: cleanup,
	}, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP boundary and the reminder sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Resolve a notDetermined permission up front so the first
			// request does not fail on an unprompted store.
			status, err := a.svc.RequestPermission(ctx)
			if err != nil {
				return err
			}
			appLog.Info("calendar permission", "status", string(status))

			if a.cfg.RemindCron != "" {
				horizon := time.Duration(a.cfg.RemindHorizonMinutes) * time.Minute
				sweeper, err := remind.New(a.svc, a.cfg.RemindCron, horizon, a.loc)
				if err != nil {
					return fmt.Errorf("reminder schedule %q: %w", a.cfg.RemindCron, err)
				}
				sweeper.Start()
				defer sweeper.Stop()
			}

			return web.NewServer(a.cfg, a.svc, a.loc).ListenAndServe(ctx)
		},
	}
}

func newCalendarsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List calendars of the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.svc.RequestPermission(cmd.Context()); err != nil {
				return err
			}
			cals, err := a.svc.RetrieveCalendars(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cals {
				flags := ""
				if c.IsDefault {
					flags += " default"
				}
				if c.ReadOnly {
					flags += " read-only"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", c.ID, c.Name, flags)
			}
			return nil
		},
	}
}

func newEventsCmd(configPath *string) *cobra.Command {
	var calendarID string
	var days int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming event occurrences of a calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.svc.RequestPermission(cmd.Context()); err != nil {
				return err
			}
			events, err := a.svc.RetrieveEvents(cmd.Context(), calendarID, windowFilter(a.loc, days))
			if err != nil {
				return err
			}
			for _, ev := range events {
				start, end := "-", "-"
				if ev.Start != nil {
					start = ev.Start.In(a.loc).Format(time.RFC3339)
				}
				if ev.End != nil {
					end = ev.End.In(a.loc).Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", ev.ID, start, end, ev.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "calendar identifier")
	cmd.Flags().IntVar(&days, "days", 7, "days ahead to expand")
	_ = cmd.MarkFlagRequired("calendar")
	return cmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var calendarID string
	var days int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a calendar's occurrences as an iCalendar document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.svc.RequestPermission(cmd.Context()); err != nil {
				return err
			}
			cals, err := a.svc.RetrieveCalendars(cmd.Context())
			if err != nil {
				return err
			}
			var target *domain.Calendar
			for i := range cals {
				if cals[i].ID == calendarID {
					target = &cals[i]
					break
				}
			}
			if target == nil {
				return fmt.Errorf("calendar %q not found", calendarID)
			}
			events, err := a.svc.RetrieveEvents(cmd.Context(), calendarID, windowFilter(a.loc, days))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ics.Export(*target, events))
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "calendar identifier")
	cmd.Flags().IntVar(&days, "days", 30, "days ahead to expand")
	_ = cmd.MarkFlagRequired("calendar")
	return cmd
}

func windowFilter(loc *time.Location, days int) store.EventFilter {
	now := time.Now().In(loc)
	end := now.AddDate(0, 0, days)
	return store.EventFilter{Start: &now, End: &end}
}
