package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/camera"
	"github.com/kozaktomas/bundy-kiosk/internal/capture"
	"github.com/kozaktomas/bundy-kiosk/internal/constants"
	"github.com/kozaktomas/bundy-kiosk/internal/loop"
	"github.com/kozaktomas/bundy-kiosk/internal/notify"
	"github.com/kozaktomas/bundy-kiosk/internal/roster"
)

// Verification is the answer of the face verification service.
type Verification struct {
	Matched    bool
	EmployeeID string
	Confidence *float64
	Message    string
}

// Verifier identifies the employee in an image.
type Verifier interface {
	Verify(ctx context.Context, image []byte) (Verification, error)
}

// Record is the attendance event stored by the recording service.
type Record struct {
	ID         string
	EmployeeID string
	Timestamp  time.Time
	Confidence *float64
}

// Recorder stores an attendance event for an employee.
type Recorder interface {
	Record(ctx context.Context, employeeID string, mode Mode, image []byte) (Record, error)
}

// Display is the capture surface as seen by the orchestrator.
type Display interface {
	ReportOutcome(outcome capture.Outcome)
	Reset()
}

// Notifier shows transient messages to the operator.
type Notifier interface {
	Notify(n notify.Notification)
}

// Options configures an Orchestrator.
type Options struct {
	Mode          Mode
	VerifyTimeout time.Duration
	RecordTimeout time.Duration
}

// Orchestrator runs attendance cycles. All methods must be called on the
// event loop; remote calls run on their own goroutines and post their
// results back through the scheduler.
type Orchestrator struct {
	ctx      context.Context
	sched    loop.Scheduler
	verifier Verifier
	recorder Recorder
	roster   *roster.Snapshot
	display  Display
	notifier Notifier
	opts     Options

	state     State
	listeners []func(prev, next State)
	discarded int
}

// New creates an orchestrator in the Idle phase. ctx bounds the remote
// calls it starts.
func New(ctx context.Context, sched loop.Scheduler, verifier Verifier, recorder Recorder, snapshot *roster.Snapshot, display Display, notifier Notifier, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = TimeIn
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = constants.VerifyTimeout
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = constants.RequestTimeout
	}
	return &Orchestrator{
		ctx:      ctx,
		sched:    sched,
		verifier: verifier,
		recorder: recorder,
		roster:   snapshot,
		display:  display,
		notifier: notifier,
		opts:     opts,
		state:    NewState(opts.Mode),
	}
}

// OnChange registers fn to be called after every state change.
func (o *Orchestrator) OnChange(fn func(prev, next State)) {
	o.listeners = append(o.listeners, fn)
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// HandleCapture starts a cycle for img. Captures arriving while a remote
// call is in flight are ignored.
func (o *Orchestrator) HandleCapture(img camera.Image) {
	if !o.dispatch(Captured{}) {
		log.Printf("attendance: ignoring capture %s while %s", img.ID, o.state.Phase)
		return
	}

	token := o.state.Token
	go func() {
		ctx, cancel := context.WithTimeout(o.ctx, o.opts.VerifyTimeout)
		defer cancel()
		result, err := o.verifier.Verify(ctx, img.Data)
		o.sched.Post(func() { o.verified(token, img, result, err) })
	}()
}

// Retake abandons the current cycle and resets the display. From Idle it
// does nothing.
func (o *Orchestrator) Retake() {
	if o.dispatch(Retaken{}) {
		o.display.Reset()
	}
}

// DisplayRetaken is called when the display returned to the live feed on
// its own, after the result hold or through its retake control.
func (o *Orchestrator) DisplayRetaken() {
	o.dispatch(Retaken{})
}

// SetMode switches the attendance mode. Any cycle in progress is abandoned;
// its pending results will be discarded.
func (o *Orchestrator) SetMode(mode Mode) {
	if o.dispatch(ModeSwitched{Mode: mode}) {
		o.display.Reset()
	}
}

func (o *Orchestrator) verified(token uint64, img camera.Image, result Verification, err error) {
	var ev Event
	switch {
	case err != nil:
		log.Printf("attendance: verification of %s failed: %v", img.ID, err)
		ev = Failed{Token: token, Failure: classify(stageVerify, err)}
	case !result.Matched:
		ev = Failed{Token: token, Failure: Failure{Kind: ErrNotRecognized, Message: orDefault(result.Message, MsgNotRecognized)}}
	case result.EmployeeID == "":
		ev = Failed{Token: token, Failure: Failure{Kind: ErrVerificationTransport, Message: MsgNoEmployeeInResponse}}
	default:
		ev = Matched{Token: token, Employee: o.roster.Lookup(result.EmployeeID), Confidence: result.Confidence}
	}

	if !o.dispatch(ev) {
		o.discard(token, "verification")
		return
	}
	if o.state.Phase != Recording {
		return
	}

	mode := o.state.Mode
	employee := *o.state.Employee
	go func() {
		ctx, cancel := context.WithTimeout(o.ctx, o.opts.RecordTimeout)
		defer cancel()
		rec, err := o.recorder.Record(ctx, employee.ID, mode, img.Data)
		o.sched.Post(func() { o.recorded(token, mode, employee, rec, err) })
	}()
}

func (o *Orchestrator) recorded(token uint64, mode Mode, employee roster.Employee, rec Record, err error) {
	var ev Event
	if err != nil {
		log.Printf("attendance: recording %s for %s failed: %v", mode, employee.ID, err)
		ev = Failed{Token: token, Failure: classify(stageRecord, err)}
	} else {
		timestamp := rec.Timestamp
		if timestamp.IsZero() {
			timestamp = o.sched.Now()
		}
		confidence := rec.Confidence
		if confidence == nil {
			confidence = o.state.Confidence
		}
		ev = Recorded{Token: token, Action: CompletedAction{
			Mode:       mode,
			Employee:   employee,
			Timestamp:  timestamp,
			RecordID:   rec.ID,
			Confidence: confidence,
		}}
	}

	if !o.dispatch(ev) {
		o.discard(token, "recording")
	}
}

// Discarded reports how many remote results arrived for an abandoned cycle
// and were dropped.
func (o *Orchestrator) Discarded() int {
	return o.discarded
}

func (o *Orchestrator) discard(token uint64, what string) {
	o.discarded++
	f := Failure{
		Kind:    ErrStaleResponse,
		Message: fmt.Sprintf("%s result of cycle %d arrived during cycle %d (%s)", what, token, o.state.Token, o.state.Phase),
	}
	log.Printf("attendance: discarding %v", f)
}

// dispatch reduces ev into the state. On a change it updates the display,
// emits the notification for terminal phases and calls the listeners, all
// in the same loop step.
func (o *Orchestrator) dispatch(ev Event) bool {
	next, ok := Reduce(o.state, ev)
	if !ok {
		return false
	}
	prev := o.state
	o.state = next

	o.display.ReportOutcome(outcome(next.Phase))

	switch next.Phase {
	case Success:
		o.notify(fmt.Sprintf("%s recorded for %s", next.LastAction.Mode.Label(), next.LastAction.Employee.DisplayName), notify.SeveritySuccess)
	case Error:
		severity := notify.SeverityError
		if next.Failure.Kind == ErrNotRecognized {
			severity = notify.SeverityWarning
		}
		o.notify(next.Failure.Message, severity)
	}

	for _, fn := range o.listeners {
		fn(prev, next)
	}
	return true
}

func (o *Orchestrator) notify(message string, severity notify.Severity) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(notify.Notification{
		Message:  message,
		Severity: severity,
		Phase:    o.state.Phase.String(),
		Time:     o.sched.Now(),
	})
}

func outcome(p Phase) capture.Outcome {
	switch p {
	case Verifying, Recording:
		return capture.OutcomeBusy
	case Success:
		return capture.OutcomeSuccess
	case Error:
		return capture.OutcomeError
	default:
		return capture.OutcomeIdle
	}
}
