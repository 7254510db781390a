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
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var punchCmd = &cobra.Command{
	Use:   "punch <image-or-dir>",
	Short: "Run one attendance cycle from the terminal",
	Long: `Run a single capture, verify and record cycle without the kiosk page.

The frame comes from an image file, or from a directory of frames that is
replayed like a camera. The usual countdown runs before the capture unless
--now is given. The command exits non-zero when the cycle ends in an error.

Examples:
  # Time in with a still photo
  bundy-kiosk punch face.jpg

  # Time out, capturing immediately
  bundy-kiosk punch --mode TIME_OUT --now face.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runPunch,
}

func init() {
	rootCmd.AddCommand(punchCmd)

	punchCmd.Flags().String("mode", "", "TIME_IN or TIME_OUT (default from KIOSK_MODE)")
	punchCmd.Flags().Bool("now", false, "Capture immediately instead of counting down")
	punchCmd.Flags().Bool("json", false, "Print the final status as JSON")
}

// feedPunchSource publishes the frame(s) at path into mailbox.
func feedPunchSource(ctx context.Context, path string, cfg *config.Config, mailbox *camera.Mailbox) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		frame, err := readImage(path, cfg)
		if err != nil {
			return err
		}
		mailbox.Publish(frame)
		return nil
	}

	feeder, err := camera.NewDirFeeder(path, cfg.Camera.FeedInterval, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return err
	}
	go feeder.Run(ctx, mailbox)
	return nil
}

// countdownRenderer draws the countdown as a progress bar on terminals and
// as plain lines otherwise.
type countdownRenderer struct {
	interactive bool
	quiet       bool
	start       int
	bar         *progressbar.ProgressBar
	last        int
}

func newCountdownRenderer(start int, quiet bool) *countdownRenderer {
	return &countdownRenderer{
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
		quiet:       quiet,
		start:       start,
		last:        -1,
	}
}

func (r *countdownRenderer) show(remaining *int) {
	if r.quiet {
		return
	}
	if remaining == nil {
		if r.bar != nil {
			_ = r.bar.Finish()
			r.bar = nil
			fmt.Println()
		}
		return
	}
	if *remaining == r.last {
		return
	}
	r.last = *remaining

	if !r.interactive {
		fmt.Printf("Capturing in %d...\n", *remaining)
		return
	}
	if r.bar == nil {
		r.bar = progressbar.NewOptions(r.start,
			progressbar.OptionSetDescription("Hold still"),
			progressbar.OptionSetWriter(os.Stdout),
			progressbar.OptionShowCount(),
			progressbar.OptionFullWidth(),
		)
	}
	_ = r.bar.Set(r.start - *remaining)
}

func runPunch(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if mode := mustGetString(cmd, "mode"); mode != "" {
		m, err := attendance.ParseMode(mode)
		if err != nil {
			return err
		}
		cfg.Kiosk.Mode = string(m)
	}
	opts, err := kiosk.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.AutoCapture = !mustGetBool(cmd, "now")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}
	backend := kiosk.Backend{Client: client}
	snapshot := loadRoster(ctx, client)

	l := loop.New()
	go l.Run(ctx)

	mailbox := camera.NewMailbox()
	if err := feedPunchSource(ctx, args[0], cfg, mailbox); err != nil {
		return err
	}

	k := kiosk.New(ctx, l, mailbox, snapshot, backend, backend, nil, opts)
	events, unsubscribe := k.Subscribe()
	defer unsubscribe()

	if err := k.Start(ctx); err != nil {
		return fmt.Errorf("starting kiosk: %w", err)
	}
	defer k.Stop(context.Background())

	if !opts.AutoCapture {
		if err := captureWhenReady(ctx, k); err != nil {
			return err
		}
	}

	status, err := waitForResult(ctx, events, newCountdownRenderer(opts.CountdownStart, jsonOutput))
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(status); err != nil {
			return err
		}
	} else if status.Phase == attendance.Success {
		a := status.LastAction
		fmt.Printf("%s recorded for %s (%s) at %s\n", a.Mode.Label(), a.Employee.DisplayName, a.Employee.ID, a.Timestamp.Local().Format(time.Kitchen))
	}

	if status.Phase == attendance.Error {
		return fmt.Errorf("attendance not recorded: %s", status.Failure.Message)
	}
	return nil
}

// captureWhenReady retries a manual capture until the first frame arrives.
func captureWhenReady(ctx context.Context, k *kiosk.Kiosk) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		_, err := k.Capture(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, camera.ErrNoFrame) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitForResult follows status events until a cycle reaches Success or
// Error.
func waitForResult(ctx context.Context, events <-chan notify.Event, countdown *countdownRenderer) (kiosk.Status, error) {
	started := false
	for {
		select {
		case <-ctx.Done():
			return kiosk.Status{}, ctx.Err()
		case event, ok := <-events:
			if !ok {
				return kiosk.Status{}, errors.New("kiosk stopped")
			}
			switch data := event.Data.(type) {
			case notify.Notification:
				if data.Severity == notify.SeverityWarning && data.Message == attendance.MsgNoFrame {
					continue
				}
				if !countdown.quiet {
					fmt.Println(data.Message)
				}
			case kiosk.Status:
				countdown.show(data.Capture.Countdown)
				if data.Phase.Busy() {
					if !started && !countdown.quiet {
						fmt.Println("Verifying...")
					}
					started = true
				}
				if started && (data.Phase == attendance.Success || data.Phase == attendance.Error) {
					return data, nil
				}
			}
		}
	}
}
