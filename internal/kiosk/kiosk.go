// Package kiosk wires one kiosk session together: the event loop, the
// camera mailbox, the capture surface, the attendance orchestrator and the
// notification fan-out. Kiosk is the thread-safe facade used by the HTTP
// host shell and the CLI.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/attendance"
	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/capture"
	"github.com/kozaktomas/bundy-kiosk/internal/config"
	"github.com/kozaktomas/bundy-kiosk/internal/constants"
	"github.com/kozaktomas/bundy-kiosk/internal/loop"
	"github.com/kozaktomas/bundy-kiosk/internal/notify"
	"github.com/kozaktomas/bundy-kiosk/internal/roster"
)

// Options configures a kiosk session.
type Options struct {
	Mode           attendance.Mode
	AutoCapture    bool
	CountdownStart int
	CountdownTick  time.Duration
	ResultHold     time.Duration
	VerifyTimeout  time.Duration
	RecordTimeout  time.Duration
	FrameWidth     int
	FrameHeight    int
}

// OptionsFromConfig builds session options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := attendance.ParseMode(cfg.Kiosk.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Mode:           mode,
		AutoCapture:    cfg.Kiosk.AutoCapture,
		CountdownStart: cfg.Kiosk.CountdownStart,
		CountdownTick:  cfg.Kiosk.CountdownTick,
		ResultHold:     cfg.Kiosk.ResultHold,
		VerifyTimeout:  cfg.Timeouts.Verify,
		RecordTimeout:  cfg.Timeouts.Request,
		FrameWidth:     cfg.Camera.Width,
		FrameHeight:    cfg.Camera.Height,
	}, nil
}

// Status is the full kiosk state rendered by the host UI.
type Status struct {
	attendance.State
	Capture    capture.View `json:"capture"`
	RosterSize int          `json:"roster_size"`
}

// Kiosk is a running kiosk session.
type Kiosk struct {
	ctx       context.Context
	runner    loop.Runner
	mailbox   *camera.Mailbox
	roster    *roster.Snapshot
	surface   *capture.Surface
	orch      *attendance.Orchestrator
	events    *notify.Broadcaster
	publisher notify.Publisher
	opts      Options
}

// New assembles a session. Nothing is shown until Start is called. ctx
// bounds remote calls and event publishing.
func New(ctx context.Context, runner loop.Runner, mailbox *camera.Mailbox, snapshot *roster.Snapshot, verifier attendance.Verifier, recorder attendance.Recorder, publisher notify.Publisher, opts Options) *Kiosk {
	if publisher == nil {
		publisher = &notify.NoopPublisher{}
	}
	if opts.FrameWidth <= 0 {
		opts.FrameWidth = constants.CaptureWidth
	}
	if opts.FrameHeight <= 0 {
		opts.FrameHeight = constants.CaptureHeight
	}

	k := &Kiosk{
		ctx:       ctx,
		runner:    runner,
		mailbox:   mailbox,
		roster:    snapshot,
		events:    notify.NewBroadcaster(),
		publisher: publisher,
		opts:      opts,
	}

	k.surface = capture.New(runner, mailbox, capture.Options{
		AutoCapture:    opts.AutoCapture,
		CountdownStart: opts.CountdownStart,
		Tick:           opts.CountdownTick,
		ResultHold:     opts.ResultHold,
	})
	k.orch = attendance.New(ctx, runner, verifier, recorder, snapshot, k.surface, k, attendance.Options{
		Mode:          opts.Mode,
		VerifyTimeout: opts.VerifyTimeout,
		RecordTimeout: opts.RecordTimeout,
	})

	k.surface.OnCapture(k.orch.HandleCapture)
	k.surface.OnRetake(k.orch.DisplayRetaken)
	k.surface.OnChange(func(capture.View) { k.broadcastStatus() })
	k.orch.OnChange(k.stateChanged)
	return k
}

// Start mounts the capture surface.
func (k *Kiosk) Start(ctx context.Context) error {
	return k.runner.Do(ctx, k.surface.Mount)
}

// Stop unmounts the capture surface, cancelling its timers.
func (k *Kiosk) Stop(ctx context.Context) error {
	return k.runner.Do(ctx, k.surface.Unmount)
}

// Status returns a consistent snapshot of the session.
func (k *Kiosk) Status(ctx context.Context) (Status, error) {
	var status Status
	err := k.runner.Do(ctx, func() { status = k.status() })
	return status, err
}

// Capture triggers a manual capture. When the camera has not produced a
// frame yet the error wraps camera.ErrNoFrame and the operator is told.
func (k *Kiosk) Capture(ctx context.Context) (camera.Image, error) {
	var (
		img camera.Image
		err error
	)
	if doErr := k.runner.Do(ctx, func() {
		img, err = k.surface.Capture()
		if errors.Is(err, camera.ErrNoFrame) {
			failure := attendance.Failure{Kind: attendance.ErrNoFrameAvailable, Message: attendance.MsgNoFrame}
			err = fmt.Errorf("%w: %w", failure, err)
			k.Notify(notify.Notification{
				Message:  failure.Message,
				Severity: notify.SeverityWarning,
				Phase:    k.orch.State().Phase.String(),
				Time:     k.runner.Now(),
			})
		}
	}); doErr != nil {
		return camera.Image{}, doErr
	}
	return img, err
}

// Retake abandons the current cycle and returns to the live feed.
func (k *Kiosk) Retake(ctx context.Context) error {
	return k.runner.Do(ctx, k.orch.Retake)
}

// SetMode switches between TIME_IN and TIME_OUT.
func (k *Kiosk) SetMode(ctx context.Context, mode attendance.Mode) error {
	return k.runner.Do(ctx, func() { k.orch.SetMode(mode) })
}

// SetAutoCapture turns the countdown on or off.
func (k *Kiosk) SetAutoCapture(ctx context.Context, enabled bool) error {
	return k.runner.Do(ctx, func() { k.surface.Configure(enabled) })
}

// PushFrame normalizes an encoded image and makes it the latest live frame.
func (k *Kiosk) PushFrame(data []byte) error {
	frame, err := camera.Normalize(data, k.opts.FrameWidth, k.opts.FrameHeight)
	if err != nil {
		return err
	}
	k.mailbox.Publish(frame)
	return nil
}

// Frame returns the latest live frame.
func (k *Kiosk) Frame() (camera.Frame, bool) {
	return k.mailbox.Latest()
}

// Subscribe registers a listener for status and notify events. The returned
// function unregisters it.
func (k *Kiosk) Subscribe() (<-chan notify.Event, func()) {
	ch := k.events.AddListener()
	return ch, func() { k.events.RemoveListener(ch) }
}

// Notify shows n to the operator and publishes it. It implements
// attendance.Notifier.
func (k *Kiosk) Notify(n notify.Notification) {
	k.events.Notify(n)
	k.publish(notify.TopicKioskNotify, n)
}

func (k *Kiosk) status() Status {
	return Status{
		State:      k.orch.State(),
		Capture:    k.surface.View(),
		RosterSize: k.roster.Len(),
	}
}

func (k *Kiosk) broadcastStatus() {
	k.events.SendEvent(notify.Event{Type: notify.EventStatus, Data: k.status()})
}

func (k *Kiosk) stateChanged(prev, next attendance.State) {
	k.broadcastStatus()

	switch {
	case next.Phase == attendance.Success && prev.Phase != attendance.Success:
		k.publish(notify.TopicAttendanceRecorded, RecordedEvent{
			Mode:       next.LastAction.Mode,
			EmployeeID: next.LastAction.Employee.ID,
			Employee:   next.LastAction.Employee.DisplayName,
			RecordID:   next.LastAction.RecordID,
			Confidence: next.LastAction.Confidence,
			Timestamp:  next.LastAction.Timestamp,
		})
	case next.Phase == attendance.Error && prev.Phase != attendance.Error:
		k.publish(notify.TopicAttendanceFailed, FailedEvent{
			Mode:      next.Mode,
			Kind:      next.Failure.Kind,
			Message:   next.Failure.Message,
			Timestamp: k.runner.Now(),
		})
	}
}

// RecordedEvent is published when an attendance event was recorded.
type RecordedEvent struct {
	Mode       attendance.Mode `json:"mode"`
	EmployeeID string          `json:"employee_id"`
	Employee   string          `json:"employee"`
	RecordID   string          `json:"record_id,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// FailedEvent is published when a cycle ended in an error.
type FailedEvent struct {
	Mode      attendance.Mode      `json:"mode"`
	Kind      attendance.ErrorKind `json:"kind"`
	Message   string               `json:"message"`
	Timestamp time.Time            `json:"timestamp"`
}

// publish sends event off the loop; failures are only logged.
func (k *Kiosk) publish(topic string, event any) {
	go func() {
		ctx, cancel := context.WithTimeout(k.ctx, constants.PublishTimeout)
		defer cancel()
		if err := k.publisher.Publish(ctx, topic, event); err != nil {
			log.Printf("kiosk: publishing %s failed: %v", topic, err)
		}
	}()
}
