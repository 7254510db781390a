package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/config"
	"github.com/kozaktomas/bundy-kiosk/internal/kiosk"
	"github.com/kozaktomas/bundy-kiosk/internal/loop"
	"github.com/kozaktomas/bundy-kiosk/internal/notify"
	"github.com/kozaktomas/bundy-kiosk/internal/roster"
	"github.com/kozaktomas/bundy-kiosk/internal/web"
	"github.com/spf13/cobra"
)

var kioskCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Start the kiosk web server",
	Long: `Start the attendance kiosk.

The kiosk page is served on the configured host and port. Frames come from
the browser's webcam, or from CAMERA_SNAPSHOT_URL / CAMERA_DIR when set.
Attendance events are published to NATS when NATS_URL is set.`,
	RunE: runKiosk,
}

func init() {
	rootCmd.AddCommand(kioskCmd)

	kioskCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	kioskCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
	kioskCmd.Flags().String("mode", "", "Initial mode: TIME_IN or TIME_OUT")
}

// applyKioskFlags lets command-line flags override the loaded configuration.
func applyKioskFlags(cmd *cobra.Command, cfg *config.Config) error {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if mode := mustGetString(cmd, "mode"); mode != "" {
		m, err := attendance.ParseMode(mode)
		if err != nil {
			return err
		}
		cfg.Kiosk.Mode = string(m)
	}
	return nil
}

// loadRoster fetches the roster once. A kiosk without names still records
// attendance, so a failure only produces a warning.
func loadRoster(ctx context.Context, lister roster.Lister) *roster.Snapshot {
	snapshot, err := roster.Load(ctx, lister)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; employees will be shown as %q\n", err, "Unknown")
		return roster.New(nil)
	}
	fmt.Fprintf(os.Stderr, "Loaded roster with %d employees\n", snapshot.Len())
	return snapshot
}

// connectPublisher returns a NATS publisher when NATS_URL is set.
func connectPublisher(cfg *config.Config) notify.Publisher {
	if cfg.NATS.URL == "" {
		return &notify.NoopPublisher{}
	}
	publisher, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		fmt.Printf("Warning: %v; attendance events will not be published\n", err)
		return &notify.NoopPublisher{}
	}
	fmt.Printf("Publishing attendance events to %s\n", cfg.NATS.URL)
	return publisher
}

// startFeeders starts server-side camera feeders into mailbox.
func startFeeders(ctx context.Context, cfg *config.Config, mailbox *camera.Mailbox) error {
	if cfg.Camera.SnapshotURL != "" {
		feeder := camera.NewHTTPFeeder(cfg.Camera.SnapshotURL, cfg.Camera.FeedInterval, cfg.Camera.Width, cfg.Camera.Height)
		go func() {
			if err := feeder.Run(ctx, mailbox); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Printf("Camera feed stopped: %v\n", err)
			}
		}()
		fmt.Printf("Reading frames from %s\n", cfg.Camera.SnapshotURL)
	}

	if cfg.Camera.Dir != "" {
		feeder, err := camera.NewDirFeeder(cfg.Camera.Dir, cfg.Camera.FeedInterval, cfg.Camera.Width, cfg.Camera.Height)
		if err != nil {
			return err
		}
		go func() {
			if err := feeder.Run(ctx, mailbox); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Printf("Directory feed stopped: %v\n", err)
			}
		}()
		fmt.Printf("Replaying %d frames from %s\n", feeder.Len(), cfg.Camera.Dir)
	}
	return nil
}

func runKiosk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyKioskFlags(cmd, cfg); err != nil {
		return err
	}
	opts, err := kiosk.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}
	backend := kiosk.Backend{Client: client}

	snapshot := loadRoster(ctx, client)

	publisher := connectPublisher(cfg)
	defer publisher.Close()

	// The loop outlives the signal context so the kiosk can be stopped on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	l := loop.New()
	go l.Run(loopCtx)

	mailbox := camera.NewMailbox()
	if err := startFeeders(ctx, cfg, mailbox); err != nil {
		return err
	}

	k := kiosk.New(ctx, l, mailbox, snapshot, backend, backend, publisher, opts)
	if err := k.Start(ctx); err != nil {
		return fmt.Errorf("starting kiosk: %w", err)
	}

	server := web.NewServer(cfg, k, Version)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		if err := k.Stop(shutdownCtx); err != nil {
			fmt.Printf("Error stopping kiosk: %v\n", err)
		}
		stopLoop()
	}()

	fmt.Printf("Starting kiosk in %s mode on http://%s:%d\n", opts.Mode, cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
