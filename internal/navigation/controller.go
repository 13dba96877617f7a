package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randytsao24/walkwise/internal/location"
	"github.com/randytsao24/walkwise/internal/route"
)

// Options configures a Controller. Only Directions is required; other
// collaborators default to no-ops.
type Options struct {
	Directions Directions
	Location   LocationSource
	Voice      VoiceRecognizer
	Speaker    Speaker
	Settings   Settings
	Window     ExecutionWindow
	Sink       EventSink

	// Policies picks the policy for a transport mode at setup time.
	// Nil means DefaultPolicy for every mode.
	Policies func(route.Mode) Policy

	Logger *slog.Logger

	// QueueSize bounds the number of pending events. Zero means 64.
	QueueSize int
}

// SetupRequest asks for a route between two "lat,lng" coordinates.
type SetupRequest struct {
	Origin      string
	Destination string
	Mode        route.Mode
	AutoStart   bool
	TestingMode bool
}

// Controller runs one navigation session at a time. All session state is
// owned by the goroutine executing Run; the exported methods only enqueue
// events and wait for replies.
type Controller struct {
	directions Directions
	location   LocationSource
	voice      VoiceRecognizer
	speaker    Speaker
	settings   Settings
	window     ExecutionWindow
	sink       EventSink
	policies   func(route.Mode) Policy
	log        *slog.Logger

	events  chan event
	done    chan struct{}
	running atomic.Bool

	// Owned by the Run goroutine.
	ctx       context.Context
	state     State
	policy    Policy
	mode      route.Mode
	rt        *route.Route
	dev       DeviationState
	progress  ProgressState
	detector  *DeviationDetector
	advancer  *StepAdvancer
	scheduler *AnnouncementScheduler

	instruction    string
	lastDeviation  *DeviationEvent
	autoStart      bool
	testing        bool
	cleaningUp     bool
	retries        int
	locationPaused bool
	listening      bool
	locating       bool
	lease          Lease

	gen              uint64
	cancelDirections context.CancelFunc
	computing        *setupCall
	waiting          *setupCall
	timers           [numTimers]timerSlot
	effects          []func()
	replies          []pendingReply

	mu     sync.RWMutex
	status Status
}

// New builds a Controller. Call Run to start processing events.
func New(opts Options) (*Controller, error) {
	if opts.Directions == nil {
		return nil, errors.New("navigation: directions provider is required")
	}
	c := &Controller{
		directions: opts.Directions,
		location:   opts.Location,
		voice:      opts.Voice,
		speaker:    opts.Speaker,
		settings:   opts.Settings,
		window:     opts.Window,
		sink:       opts.Sink,
		policies:   opts.Policies,
		log:        opts.Logger,
		done:       make(chan struct{}),
	}
	if c.location == nil {
		c.location = nopSource{}
	}
	if c.voice == nil {
		c.voice = nopSource{}
	}
	if c.speaker == nil {
		c.speaker = nopSpeaker{}
	}
	if c.settings == nil {
		c.settings = alwaysSpeak{}
	}
	if c.window == nil {
		c.window = nopWindow{}
	}
	if c.sink == nil {
		c.sink = nopSink{}
	}
	if c.policies == nil {
		c.policies = func(route.Mode) Policy { return DefaultPolicy() }
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "navigation")

	size := opts.QueueSize
	if size <= 0 {
		size = 64
	}
	c.events = make(chan event, size)

	c.applyPolicy(route.Walking, c.policies(route.Walking))
	c.progress.Reset()
	c.publishStatus()
	return c, nil
}

type alwaysSpeak struct{}

func (alwaysSpeak) VoiceFeedbackEnabled() bool { return true }

// Run processes events until ctx is cancelled. On return the session is
// torn down and every collaborator resource released.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("navigation: controller already running")
	}
	c.ctx = ctx
	defer close(c.done)

	c.log.Info("navigation controller started")
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			c.flush()
			c.log.Info("navigation controller stopped")
			return nil
		case ev := <-c.events:
			c.handle(ev)
			c.flush()
		}
	}
}

// SetupRoute computes a route and, unless AutoStart is set, asks the walker
// to confirm. An active session is torn down first. It returns once the
// route is ready or setup failed.
func (c *Controller) SetupRoute(ctx context.Context, req SetupRequest) error {
	reply := make(chan error, 1)
	return c.call(ctx, &setupCall{req: req, reply: reply}, reply)
}

// StartNavigation confirms the route awaiting confirmation.
func (c *Controller) StartNavigation(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, startCall{reply: reply}, reply)
}

// ClearRoute ends the session and releases every resource. Calling it on an
// idle controller holding nothing is a no-op and leaves setup available.
func (c *Controller) ClearRoute(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, clearCall{reply: reply}, reply)
}

// Sync waits until every event queued before it has been handled.
func (c *Controller) Sync(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, syncCall{reply: reply}, reply)
}

// PushFix queues a position fix.
func (c *Controller) PushFix(ctx context.Context, fix location.Fix) error {
	return c.submit(ctx, fixEvent{fix: fix})
}

// PushTranscript queues a voice recognition result.
func (c *Controller) PushTranscript(ctx context.Context, text string) error {
	return c.submit(ctx, transcriptEvent{text: text})
}

// ReportLocationFailure tells the controller the location source failed.
func (c *Controller) ReportLocationFailure(ctx context.Context, cause error) error {
	if !errors.Is(cause, ErrLocationUnavailable) {
		cause = fmt.Errorf("%w: %v", ErrLocationUnavailable, cause)
	}
	return c.submit(ctx, locationFailure{err: cause})
}

// Status returns a snapshot of the session.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Controller) submit(ctx context.Context, ev event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) call(ctx context.Context, ev event, reply <-chan error) error {
	if err := c.submit(ctx, ev); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by timers and background work to feed results back into
// the loop.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// later queues a collaborator call to run after the current event has
// updated session state and the status snapshot. Replies to callers are
// sent after all such calls.
func (c *Controller) later(fn func()) {
	c.effects = append(c.effects, fn)
}

func (c *Controller) flush() {
	c.publishStatus()
	for len(c.effects) > 0 {
		effects := c.effects
		c.effects = nil
		for _, fn := range effects {
			fn()
		}
	}
	replies := c.replies
	c.replies = nil
	for _, r := range replies {
		r.ch <- r.err
	}
}

func (c *Controller) publishStatus() {
	s := Status{
		State:          c.state,
		Instruction:    c.instruction,
		StepIndex:      c.progress.StepIndex,
		SegmentIndex:   c.dev.SegmentIndex,
		OffRoute:       c.dev.OffRoute,
		DeviationCount: c.dev.Counter,
		AnnouncedEarly: sortedKeys(c.progress.AnnouncedEarly),
		AnnouncedFinal: sortedKeys(c.progress.AnnouncedFinal),
		HasRoute:       c.rt != nil,
		TestingMode:    c.testing,
		LocationPaused: c.locationPaused,
		Listening:      c.listening,
		CleaningUp:     c.cleaningUp,
	}
	if c.lastDeviation != nil {
		d := *c.lastDeviation
		s.LastDeviation = &d
	}
	if c.rt != nil {
		s.StepCount = c.rt.StepCount()
		s.Mode = string(c.mode)
		s.RouteLength = c.rt.Length()
	}

	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case *setupCall:
		c.handleSetup(ev)
	case startCall:
		c.handleStart(ev)
	case clearCall:
		c.handleClear(ev)
	case syncCall:
		c.reply(ev.reply, nil)
	case fixEvent:
		c.handleFix(ev.fix)
	case transcriptEvent:
		c.handleTranscript(ev.text)
	case locationFailure:
		c.handleLocationFailure(ev.err)
	case directionsResult:
		c.handleDirections(ev)
	case timerFired:
		c.handleTimer(ev)
	default:
		c.log.Error("unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) handleSetup(call *setupCall) {
	if c.state == Error {
		c.reply(call.reply, fmt.Errorf("%w: clear the route before setting up a new one", ErrReentrancyExceeded))
		return
	}
	if c.waiting != nil {
		c.reply(call.reply, ErrBusy)
		return
	}
	if c.state.active() {
		c.log.Info("canceling current session to set up a new route", "state", c.state)
		c.teardown()
		c.waiting = call
		c.scheduleRetry()
		return
	}
	if c.cleaningUp {
		c.say(BusyPhrase, false)
		c.reply(call.reply, ErrBusy)
		return
	}
	c.beginSetup(call)
}

// scheduleRetry counts a setup attempt that had to wait for teardown and
// fails the waiting setup once the policy bound is exceeded.
func (c *Controller) scheduleRetry() {
	c.retries++
	if c.retries > c.policy.MaxSetupRetries {
		call := c.waiting
		c.waiting = nil
		c.log.Warn("route setup retried too many times, giving up", "retries", c.retries-1)
		c.transition(Error)
		c.emitError(EventError, ErrReentrancyExceeded)
		if call != nil {
			c.reply(call.reply, ErrReentrancyExceeded)
		}
		return
	}
	c.arm(timerRetry, c.policy.SetupRetryDelay)
}

func (c *Controller) retrySetup() {
	call := c.waiting
	if call == nil {
		return
	}
	if c.cleaningUp {
		c.scheduleRetry()
		return
	}
	c.waiting = nil
	c.beginSetup(call)
}

func (c *Controller) beginSetup(call *setupCall) {
	origin, err := location.ParseCoordinate(call.req.Origin)
	var dest location.Point
	if err == nil {
		dest, err = location.ParseCoordinate(call.req.Destination)
	}
	if err != nil {
		c.log.Warn("invalid coordinates", "origin", call.req.Origin, "destination", call.req.Destination)
		c.say(InvalidCoordinatesPhrase, false)
		c.emitError(EventWarning, err)
		c.reply(call.reply, err)
		return
	}

	mode := call.req.Mode
	if mode == "" {
		mode = route.Walking
	}
	c.applyPolicy(mode, c.policies(mode))
	c.autoStart = call.req.AutoStart
	c.testing = call.req.TestingMode
	c.rt = nil
	c.instruction = ""
	c.transition(RouteComputing)

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelDirections = cancel
	c.computing = call

	c.log.Info("requesting directions", "origin", origin, "destination", dest, "mode", mode)
	go func() {
		rt, err := c.directions.Route(ctx, origin, dest, mode)
		c.post(directionsResult{gen: gen, rt: rt, err: err})
	}()
}

func (c *Controller) handleDirections(res directionsResult) {
	if res.gen != c.gen || c.state != RouteComputing || c.computing == nil {
		c.log.Debug("dropping stale directions result", "generation", res.gen)
		return
	}
	call := c.computing
	c.computing = nil
	c.stopDirections()

	err := res.err
	if err == nil && res.rt == nil {
		err = fmt.Errorf("%w: provider returned no route", ErrInvalidRoute)
	}
	if err != nil {
		if !errors.Is(err, ErrInvalidRoute) && !errors.Is(err, ErrNoRouteFound) {
			err = fmt.Errorf("%w: %v", ErrNoRouteFound, err)
		}
		c.log.Error("directions failed", "error", err)
		c.say(NoRoutePhrase, false)
		c.transition(Idle)
		c.emitError(EventError, err)
		c.reply(call.reply, err)
		return
	}

	c.rt = res.rt
	c.retries = 0
	c.dev.Reset()
	c.progress.Reset()
	c.log.Info("route ready",
		"steps", c.rt.StepCount(),
		"points", c.rt.PointCount(),
		"length_m", c.rt.Length(),
	)
	c.reply(call.reply, nil)

	if c.autoStart {
		c.startNavigation()
	} else {
		c.awaitConfirmation()
	}
}

func (c *Controller) awaitConfirmation() {
	c.transition(AwaitingConfirmation)
	c.say(PromptPhrase, false)
	c.arm(timerListen, c.policy.ListenDelay)
}

func (c *Controller) handleStart(call startCall) {
	switch {
	case c.state == Navigating:
		c.log.Warn("navigation already in progress, ignoring start")
		c.reply(call.reply, nil)
	case c.cleaningUp:
		c.say(BusyPhrase, false)
		c.reply(call.reply, ErrBusy)
	case c.state == AwaitingConfirmation:
		c.startNavigation()
		c.reply(call.reply, nil)
	default:
		c.reply(call.reply, ErrNotReady)
	}
}

func (c *Controller) startNavigation() {
	c.disarm(timerListen)
	c.releaseListening()
	c.transition(Navigating)

	c.dev.Reset()
	c.progress.Reset()
	c.lastDeviation = nil
	c.locationPaused = false
	if c.lease == nil {
		c.lease = c.window.Acquire("navigation")
	}
	if !c.testing {
		c.acquireLocation()
	}
	c.log.Info("navigation started", "steps", c.rt.StepCount(), "testing", c.testing)
	c.announceStep()
}

// announceStep speaks the current step, or finishes the session when the
// last step has been passed.
func (c *Controller) announceStep() {
	i := c.progress.StepIndex
	if i >= c.rt.StepCount() {
		c.arrive()
		return
	}

	text := SimplifyInstruction(c.rt.Step(i).Instruction)
	c.instruction = text
	c.emit(Event{Type: EventInstruction, Text: text, StepIndex: &i, StepCount: c.rt.StepCount()})
	c.log.Info("step", "index", i+1, "count", c.rt.StepCount(), "instruction", text)
	c.say(text, false)

	if c.testing {
		c.arm(timerTestingStep, c.policy.TestingStepInterval)
	}
}

func (c *Controller) arrive() {
	c.transition(Arrived)
	c.instruction = arrivedInstruction
	c.log.Info("arrived at destination")
	c.say(ArrivedPhrase, false)

	c.disarm(timerTestingStep)
	c.releaseListening()
	c.releaseLocation()
	c.releaseWindow()
	c.dev.Reset()
	c.progress.Reset()
	c.lastDeviation = nil
	c.locationPaused = false
	c.transition(Idle)
}

func (c *Controller) handleFix(fix location.Fix) {
	if c.state != Navigating || c.testing {
		return
	}
	if !fix.Valid() {
		c.handleLocationFailure(fmt.Errorf("%w: unusable fix %v (accuracy %v)", ErrLocationUnavailable, fix.Point, fix.Accuracy))
		return
	}
	if c.locationPaused {
		c.locationPaused = false
		c.log.Info("location updates resumed")
	}

	if ev, ok := c.detector.Evaluate(fix, c.rt, &c.dev); ok {
		c.onDeviation(ev)
	}

	current := c.progress.StepIndex
	advanced := c.advancer.Evaluate(fix, c.rt, &c.progress, &c.dev)
	for _, a := range c.scheduler.EvaluateStep(fix, c.rt, &c.progress, current) {
		c.log.Info("announcement", "kind", a.Kind, "step", a.StepIndex+1, "text", a.Text)
		c.say(a.Text, false)
	}
	if advanced {
		c.announceStep()
	}
}

func (c *Controller) onDeviation(ev DeviationEvent) {
	c.lastDeviation = &ev
	c.log.Info("deviation", "kind", ev.Kind, "distance_m", ev.Distance)
	c.emit(Event{Type: EventDeviation, Deviation: &ev})
	c.say(ev.Kind.Phrase(), false)
}

func (c *Controller) handleLocationFailure(err error) {
	if c.state != Navigating {
		c.log.Debug("location failure outside navigation", "error", err)
		return
	}
	c.log.Warn("location unavailable", "error", err)
	if c.locationPaused {
		return
	}
	c.locationPaused = true
	c.emitError(EventWarning, err)
	c.say(LocationPhrase, false)
}

func (c *Controller) handleTranscript(text string) {
	cmd := ParseCommand(text)
	c.log.Info("transcript", "text", text, "command", cmd, "state", c.state)

	switch {
	case c.state == AwaitingConfirmation && cmd == StartCommand:
		c.startNavigation()
	case (c.state == AwaitingConfirmation || c.state == Navigating) && cmd == CancelCommand:
		c.clear()
		c.say(CancelledPhrase, true)
	}
}

func (c *Controller) handleClear(call clearCall) {
	c.clear()
	c.retries = 0
	c.reply(call.reply, nil)
}

func (c *Controller) clear() {
	if c.state == Idle && c.rt == nil && c.computing == nil && c.waiting == nil &&
		!c.listening && !c.locating && c.lease == nil {
		c.log.Debug("nothing to clear")
		return
	}
	c.cancelWaiting(ErrCancelled)
	c.teardown()
	c.log.Info("route cleared")
}

// teardown releases every session resource and resets session state. It
// is idempotent.
func (c *Controller) teardown() {
	if c.state.active() {
		c.transition(Cancelled)
	}

	c.stopDirections()
	if c.computing != nil {
		c.reply(c.computing.reply, ErrCancelled)
		c.computing = nil
	}
	c.gen++
	c.disarm(timerListen)
	c.disarm(timerTestingStep)

	c.releaseListening()
	c.releaseLocation()
	c.releaseWindow()
	c.later(c.speaker.Cancel)

	c.dev.Reset()
	c.progress.Reset()
	c.rt = nil
	c.instruction = ""
	c.lastDeviation = nil
	c.locationPaused = false
	c.testing = false
	c.autoStart = false

	if !c.cleaningUp {
		c.cleaningUp = true
		c.arm(timerCleanup, c.policy.CleanupGuard)
	}
	c.transition(Idle)
}

func (c *Controller) cancelWaiting(err error) {
	if c.waiting == nil {
		return
	}
	c.reply(c.waiting.reply, err)
	c.waiting = nil
	c.disarm(timerRetry)
}

func (c *Controller) shutdown() {
	c.cancelWaiting(ErrStopped)
	if c.computing != nil {
		c.reply(c.computing.reply, ErrStopped)
		c.computing = nil
	}
	c.teardown()
	for k := range c.timers {
		c.disarm(timerKind(k))
	}
	c.cleaningUp = false
}

func (c *Controller) stopDirections() {
	if c.cancelDirections != nil {
		c.cancelDirections()
		c.cancelDirections = nil
	}
}

func (c *Controller) handleTimer(ev timerFired) {
	slot := &c.timers[ev.kind]
	if ev.seq != slot.seq {
		return
	}
	slot.t = nil
	slot.seq++

	switch ev.kind {
	case timerCleanup:
		c.cleaningUp = false
		c.retries = 0
		c.log.Debug("cleanup finished")
	case timerRetry:
		c.retrySetup()
	case timerListen:
		if c.state == AwaitingConfirmation {
			c.acquireListening()
		}
	case timerTestingStep:
		if c.state == Navigating && c.testing {
			c.progress.StepIndex++
			c.detector.AdvanceSegment(c.rt, &c.dev)
			c.announceStep()
		}
	}
}

func (c *Controller) applyPolicy(mode route.Mode, p Policy) {
	c.mode = mode
	c.policy = p
	c.detector = NewDeviationDetector(p)
	c.advancer = NewStepAdvancer(p, c.detector)
	c.scheduler = NewAnnouncementScheduler(p)
}

func (c *Controller) transition(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.log.Info("navigation state changed", "from", from, "to", to)
	c.emit(Event{Type: EventState, From: from.String(), To: to.String()})
}

func (c *Controller) emit(ev Event) {
	ev.Time = time.Now()
	c.later(func() { c.sink.Publish(ev) })
}

func (c *Controller) emitError(t EventType, err error) {
	c.emit(Event{Type: t, Kind: ErrorKind(err), Message: err.Error()})
}

func (c *Controller) reply(ch chan<- error, err error) {
	c.replies = append(c.replies, pendingReply{ch: ch, err: err})
}

// say requests an utterance. Speaking while waiting for confirmation
// pauses listening and restarts the listen delay, so the recognizer does
// not transcribe our own voice.
func (c *Controller) say(text string, interrupt bool) {
	enabled := c.settings.VoiceFeedbackEnabled()
	c.emit(Event{Type: EventUtterance, Text: text, Spoken: enabled, Interrupt: interrupt})
	if !enabled {
		c.log.Debug("voice feedback disabled, not speaking", "text", text)
		return
	}
	if c.listening && c.state == AwaitingConfirmation {
		c.releaseListening()
		c.arm(timerListen, c.policy.ListenDelay)
	}
	if interrupt {
		c.later(func() { c.speaker.Interrupt(text) })
	} else {
		c.later(func() { c.speaker.Speak(text) })
	}
}

func (c *Controller) acquireListening() {
	if c.listening {
		return
	}
	c.listening = true
	c.later(func() {
		if err := c.voice.Start(); err != nil {
			c.log.Warn("voice recognition unavailable", "error", err)
		}
	})
}

func (c *Controller) releaseListening() {
	if !c.listening {
		return
	}
	c.listening = false
	c.later(c.voice.Stop)
}

func (c *Controller) acquireLocation() {
	if c.locating {
		return
	}
	c.locating = true
	c.later(func() {
		if err := c.location.Start(); err != nil {
			// post would block the loop if the queue is full.
			go c.post(locationFailure{err: fmt.Errorf("%w: %v", ErrLocationUnavailable, err)})
		}
	})
}

func (c *Controller) releaseLocation() {
	if !c.locating {
		return
	}
	c.locating = false
	c.later(c.location.Stop)
}

func (c *Controller) releaseWindow() {
	if c.lease == nil {
		return
	}
	lease := c.lease
	c.lease = nil
	c.later(lease.Release)
}

type event any

type setupCall struct {
	req   SetupRequest
	reply chan error
}

type startCall struct{ reply chan error }

type clearCall struct{ reply chan error }

type syncCall struct{ reply chan error }

type pendingReply struct {
	ch  chan<- error
	err error
}

type fixEvent struct{ fix location.Fix }

type transcriptEvent struct{ text string }

type locationFailure struct{ err error }

type directionsResult struct {
	gen uint64
	rt  *route.Route
	err error
}

type timerKind int

const (
	timerCleanup timerKind = iota
	timerRetry
	timerListen
	timerTestingStep
	numTimers
)

type timerSlot struct {
	t   *time.Timer
	seq uint64
}

type timerFired struct {
	kind timerKind
	seq  uint64
}

// arm (re)starts timer k. A timer that was disarmed or re-armed before its
// event is handled is recognized by its stale sequence number and ignored.
func (c *Controller) arm(k timerKind, d time.Duration) {
	c.disarm(k)
	seq := c.timers[k].seq
	c.timers[k].t = time.AfterFunc(d, func() {
		c.post(timerFired{kind: k, seq: seq})
	})
}

func (c *Controller) disarm(k timerKind) {
	slot := &c.timers[k]
	if slot.t != nil {
		slot.t.Stop()
		slot.t = nil
	}
	slot.seq++
}
