// Package capture implements the kiosk capture surface: the live feed, the
// optional countdown that fires a capture on its own, and the frozen frame
// shown while the captured image is being processed.
//
// The surface is purely mechanical. It knows nothing about verification or
// attendance; its owner tells it what is going on through ReportOutcome.
// All methods must be called on the event loop.
package capture

import (
	"errors"
	"log"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/constants"
	"github.com/kozaktomas/bundy-kiosk/internal/loop"
)

// Errors returned by Capture.
var (
	ErrFrozen    = errors.New("a captured frame is already shown")
	ErrBusy      = errors.New("capture is suppressed while busy")
	ErrUnmounted = errors.New("capture surface is not mounted")
)

// Outcome is what the surface's owner reports about the image it received.
type Outcome int

// Outcome constants.
const (
	OutcomeIdle Outcome = iota
	OutcomeBusy
	OutcomeSuccess
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeBusy:
		return "busy"
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Options configures a surface.
type Options struct {
	AutoCapture    bool
	CountdownStart int           // ticks, defaults to constants.CountdownStart
	Tick           time.Duration // defaults to constants.CountdownTick
	ResultHold     time.Duration // delay before auto-retake after Success/Error
}

func (o *Options) applyDefaults() {
	if o.CountdownStart <= 0 {
		o.CountdownStart = constants.CountdownStart
	}
	if o.Tick <= 0 {
		o.Tick = constants.CountdownTick
	}
	if o.ResultHold <= 0 {
		o.ResultHold = constants.ResultHold
	}
}

// View is what the host renders: either the live feed (with an optional
// countdown overlay) or the frozen frame (with an optional retake control).
type View struct {
	Live          bool          `json:"live"`
	Frozen        *camera.Image `json:"frozen,omitempty"`
	Countdown     *int          `json:"countdown,omitempty"`
	AutoCapture   bool          `json:"auto_capture"`
	Busy          bool          `json:"busy"`
	RetakeEnabled bool          `json:"retake_enabled"`
}

// Surface owns the capture state of one mounted kiosk screen.
type Surface struct {
	sched  loop.Scheduler
	source camera.Source
	opts   Options

	onCapture func(camera.Image)
	onRetake  func()
	onChange  func(View)

	mounted bool
	frozen  *camera.Image
	busy    bool

	// countdown
	counting     bool
	remaining    int
	countdown    loop.Timer
	countdownGen uint64

	// auto-retake after a result
	autoReset    loop.Timer
	autoResetGen uint64
}

// New creates an unmounted surface.
func New(sched loop.Scheduler, source camera.Source, opts Options) *Surface {
	opts.applyDefaults()
	return &Surface{
		sched:     sched,
		source:    source,
		opts:      opts,
		onCapture: func(camera.Image) {},
		onRetake:  func() {},
		onChange:  func(View) {},
	}
}

// OnCapture sets the function receiving each captured image, exactly once
// per capture.
func (s *Surface) OnCapture(fn func(camera.Image)) { s.onCapture = fn }

// OnRetake sets the function called when the surface returns to the live
// feed on its own: the retake control or the post-result delay.
func (s *Surface) OnRetake(fn func()) { s.onRetake = fn }

// OnChange sets the function called after every visible change.
func (s *Surface) OnChange(fn func(View)) { s.onChange = fn }

// Mount shows the live feed and starts the countdown when auto-capture is on.
func (s *Surface) Mount() {
	if s.mounted {
		return
	}
	s.mounted = true
	s.armCountdown()
	s.changed()
}

// Unmount cancels every timer. The surface can be mounted again later with
// fresh state.
func (s *Surface) Unmount() {
	if !s.mounted {
		return
	}
	s.stopCountdown()
	s.stopAutoReset()
	s.mounted = false
	s.frozen = nil
	s.busy = false
}

// Configure switches auto-capture on or off. Any running countdown is
// cancelled; when enabled and the feed is live a new one starts from the
// top.
func (s *Surface) Configure(autoCapture bool) {
	s.opts.AutoCapture = autoCapture
	s.stopCountdown()
	s.armCountdown()
	s.changed()
}

// AutoCapture reports whether auto-capture is configured.
func (s *Surface) AutoCapture() bool {
	return s.opts.AutoCapture
}

// Capture snapshots the current live frame, freezes it on screen and hands
// it to the OnCapture function. If the source has no frame yet the error
// wraps camera.ErrNoFrame and nothing changes.
func (s *Surface) Capture() (camera.Image, error) {
	switch {
	case !s.mounted:
		return camera.Image{}, ErrUnmounted
	case s.frozen != nil:
		return camera.Image{}, ErrFrozen
	case s.busy:
		return camera.Image{}, ErrBusy
	}

	img, err := s.source.Snapshot()
	if err != nil {
		return camera.Image{}, err
	}

	s.stopCountdown()
	s.frozen = &img
	s.changed()
	s.onCapture(img)
	return img, nil
}

// Retake discards the frozen frame and returns to the live feed. Without a
// frozen frame it does nothing, so calling it twice is harmless.
func (s *Surface) Retake() {
	if !s.mounted || s.frozen == nil {
		return
	}
	s.reset()
	s.onRetake()
}

// Reset returns to the live feed unconditionally, restarting the countdown
// from the top. Used by the owner when it abandons the current cycle (mode
// switch); OnRetake is not called.
func (s *Surface) Reset() {
	if !s.mounted {
		return
	}
	s.reset()
}

// ReportOutcome tells the surface what its owner is doing with the last
// image. Busy hides the retake control; Success and Error schedule a return
// to the live feed after the result hold delay.
func (s *Surface) ReportOutcome(outcome Outcome) {
	s.stopAutoReset()

	switch outcome {
	case OutcomeIdle:
		s.busy = false
		s.armCountdown()
	case OutcomeBusy:
		s.busy = true
	case OutcomeSuccess, OutcomeError:
		s.busy = false
		s.scheduleAutoReset()
	}
	s.changed()
}

// View returns the current presentation.
func (s *Surface) View() View {
	v := View{
		Live:        s.mounted && s.frozen == nil,
		AutoCapture: s.opts.AutoCapture,
		Busy:        s.busy,
	}
	if s.frozen != nil {
		frozen := *s.frozen
		v.Frozen = &frozen
		v.RetakeEnabled = !s.busy
	}
	if s.counting {
		remaining := s.remaining
		v.Countdown = &remaining
	}
	return v
}

func (s *Surface) reset() {
	s.stopAutoReset()
	s.stopCountdown()
	s.frozen = nil
	s.busy = false
	s.armCountdown()
	s.changed()
}

// armCountdown starts a countdown from the top when the surface is live,
// auto-capture is on, nothing is pending and no countdown is running.
func (s *Surface) armCountdown() {
	if !s.mounted || !s.opts.AutoCapture || s.frozen != nil || s.busy || s.counting {
		return
	}
	s.countdownGen++
	s.counting = true
	s.remaining = s.opts.CountdownStart
	s.scheduleTick(s.countdownGen)
}

func (s *Surface) scheduleTick(gen uint64) {
	s.countdown = s.sched.AfterFunc(s.opts.Tick, func() { s.tick(gen) })
}

// tick handles one elapsed countdown interval. The generation check drops
// ticks from a countdown that has since been cancelled.
func (s *Surface) tick(gen uint64) {
	if gen != s.countdownGen || !s.counting {
		return
	}
	if s.busy {
		s.scheduleTick(gen)
		return
	}

	s.remaining--
	if s.remaining > 0 {
		s.scheduleTick(gen)
		s.changed()
		return
	}

	// Reaching zero is the single firing edge of this countdown.
	s.counting = false
	s.countdown = nil
	_, err := s.Capture()
	if err == nil {
		return
	}
	if !errors.Is(err, camera.ErrNoFrame) {
		log.Printf("capture: countdown capture failed: %v", err)
	}
	// Still live: count down again rather than sit idle.
	s.armCountdown()
	s.changed()
}

func (s *Surface) stopCountdown() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
	s.countdownGen++
	s.counting = false
	s.remaining = 0
}

func (s *Surface) scheduleAutoReset() {
	s.autoResetGen++
	gen := s.autoResetGen
	s.autoReset = s.sched.AfterFunc(s.opts.ResultHold, func() {
		if gen != s.autoResetGen || !s.mounted {
			return
		}
		s.autoReset = nil
		s.reset()
		s.onRetake()
	})
}

func (s *Surface) stopAutoReset() {
	if s.autoReset != nil {
		s.autoReset.Stop()
		s.autoReset = nil
	}
	s.autoResetGen++
}

func (s *Surface) changed() {
	if s.mounted {
		s.onChange(s.View())
	}
}
