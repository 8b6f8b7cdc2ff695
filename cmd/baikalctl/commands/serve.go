package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"baikalctl/internal/browser"
	"baikalctl/internal/components/chrono"
	"baikalctl/internal/components/process"
	"baikalctl/internal/components/telemetry"
	"baikalctl/internal/config"
	"baikalctl/internal/console"
	"baikalctl/internal/models"
	"baikalctl/internal/server"
	"baikalctl/internal/version"
	libtelemetry "baikalctl/lib/telemetry"
	"baikalctl/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

const (
	report_serve_reset    = "serve.reset"
	report_serve_shutdown = "serve.shutdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API, this is the default command.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err = cfg.Resolve()
	if err != nil {
		return err
	}

	level, _ := libtelemetry.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	libtelemetry.InitSlog(level, cfg.LogJSON)

	return serve(cmd.Context(), cfg, telemetry.SlogAPI{})
}

func serve(ctx context.Context, cfg config.Config, tel telemetry.API) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	otel, err := libtelemetry.Setup(ctx, version.Name, cfg.Telemetry())
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := otel.Shutdown(context.Background()); err != nil {
			tel.ReportWarning(report_serve_shutdown, err)
		}
	}()
	if cfg.Telemetry().Enabled() {
		if err := libtelemetry.InstrumentPerfStats(ctx, libtelemetry.PerfStatsInterval); err != nil {
			return fmt.Errorf("instrument perf stats: %w", err)
		}
	}

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return err
	}

	if !cfg.Headless && cfg.XvfbBin != "" {
		xvfb := process.NewSupervised(tel, cfg.XvfbBin, cfg.Display, "-nolisten", "tcp")
		if err := xvfb.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", cfg.XvfbBin, err)
		}
		defer func() {
			if err := xvfb.Stop(process.DefaultStopTimeout); err != nil {
				tel.ReportWarning(report_serve_shutdown, err)
			}
		}()
	}

	launcher := browser.NewFirefoxLauncher(browser.FirefoxOptions{
		BaseURL:           cfg.CaldavURL,
		ClientCert:        cfg.ClientCert,
		ClientKey:         cfg.ClientKey,
		ProfileDir:        cfg.ProfileDir,
		Headless:          cfg.Headless,
		Display:           cfg.Display,
		Timeout:           cfg.BrowserTimeoutDuration(),
		NavigationRate:    cfg.NavigationRate,
		IgnoreHTTPSErrors: cfg.IgnoreHTTPSErrors,
		Install:           cfg.InstallBrowser,
	}, tel)

	session, err := console.NewSession(launcher, tel, console.Options{
		URL:            cfg.CaldavURL,
		ClientCert:     cfg.ClientCert,
		ProfileName:    cfg.ProfileName,
		WizardMaxSteps: cfg.WizardMaxSteps,
		WizardTimeout:  cfg.WizardTimeoutDuration(),
		Time:           clock,
		Version:        version.Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serviceutil.ShutdownTimeout)
		defer cancel()
		if err := session.Shutdown(shutdownCtx); err != nil {
			tel.ReportWarning(report_serve_shutdown, err)
		}
	}()

	srv, err := server.NewServer(session, tel, server.Options{
		APIKey:   cfg.APIKey,
		Time:     clock,
		Shutdown: cancel,
	})
	if err != nil {
		return err
	}

	if cfg.ResetSchedule != "" {
		scheduler := chrono.NewStandardCron(clock, tel)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), serviceutil.ShutdownTimeout)
			defer cancel()
			if err := scheduler.Stop(stopCtx); err != nil {
				tel.ReportWarning(report_serve_shutdown, err)
			}
		}()
		if err := scheduleReset(ctx, scheduler, cfg, srv, session, tel); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serviceutil.Serve(ctx, httpServer)
}

type resetter interface {
	Reset(ctx context.Context, account models.Account) (string, error)
}

// scheduleReset restarts the browser session on the configured schedule,
// waiting for the request in progress.
func scheduleReset(ctx context.Context, scheduler chrono.CronAPI, cfg config.Config, srv *server.Server, session resetter, tel telemetry.API) error {
	account := models.Account{Username: cfg.AdminUsername, Password: cfg.AdminPassword}
	return scheduler.Cron(cfg.ResetSchedule, func() {
		err := srv.RunExclusive(ctx, func(ctx context.Context) error {
			message, err := session.Reset(ctx, account)
			if err == nil {
				tel.ReportDebug("scheduled reset", message)
			}
			return err
		})
		if err != nil {
			tel.ReportWarning(report_serve_reset, err)
		}
	})
}
