// Package track runs a tracking session: it drives a telescope mount along
// a prepared trajectory in real time, or against a simulated mount for dry
// runs, recording pointing error as it goes.
package track

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/skywatchdev/sattrack/pkg/mount"
	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

// State is a tracking session's lifecycle phase.
type State int

const (
	// StateIdle means the trajectory is built but the mount is not yet
	// positioned
	StateIdle State = iota

	// StateWaitingForStart means the mount is parked on the lead-in point
	// waiting for the pass to begin
	StateWaitingForStart

	// StateTracking means the controller is actively commanding rates
	StateTracking

	// StateDone means the clock passed the final waypoint
	StateDone

	// StateAborted means the session ended on error or cancellation
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForStart:
		return "waiting_for_start"
	case StateTracking:
		return "tracking"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrUnattainableRates means the trajectory demands azimuth rates beyond
// the mount's limit during a zenith passage and the session was not
// configured to proceed anyway.
var ErrUnattainableRates = errors.New("trajectory demands rates beyond the mount's slew limit")

// Status is a point-in-time view of a running session, published to the
// optional OnStatus callback each tick.
type Status struct {
	State   State     `json:"state"`
	Time    time.Time `json:"time"`
	Segment int       `json:"segment"`
	AzRate  float64   `json:"azRate"`
	AltRate float64   `json:"altRate"`
}

// Options tunes a tracking session. Zero values get sensible defaults.
type Options struct {
	// Period is the tracking tick interval
	Period time.Duration

	// SlewGrace bounds how long the mount may take to reach the lead-in
	// point before the session aborts with a TimeoutError
	SlewGrace time.Duration

	// SlewPoll is how often the slewing flag is checked during the
	// initial slew
	SlewPoll time.Duration

	// RecordInterval is how often the mount position is sampled into the
	// recorder; zero records every tick
	RecordInterval time.Duration

	// ProgressInterval is how often a progress line is logged
	ProgressInterval time.Duration

	// AllowUnattainable lets a session start despite flagged
	// zenith-passage segments
	AllowUnattainable bool

	// Retry bounds per-command retries
	Retry mount.RetryConfig

	// TimeScale accelerates dry runs: 2.0 replays a pass at double speed.
	// Zero or less means real time. Ignored by live sessions.
	TimeScale float64

	// Recorder, when set, receives pointing-error samples each tick.
	// Dry runs set it; live sessions normally leave it nil.
	Recorder *Recorder

	// OnStatus, when set, is called with a status snapshot each tick
	OnStatus func(Status)
}

func (o *Options) setDefaults() {
	if o.Period <= 0 {
		o.Period = time.Second
	}
	if o.SlewGrace <= 0 {
		o.SlewGrace = 90 * time.Second
	}
	if o.SlewPoll <= 0 {
		o.SlewPoll = 500 * time.Millisecond
	}
	if o.RecordInterval <= 0 {
		o.RecordInterval = o.Period
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 5 * time.Second
	}
	if o.Retry == (mount.RetryConfig{}) {
		o.Retry = mount.DefaultRetryConfig()
	}
}

// Controller owns a single tracking session. The session state is mutated
// only by the Run loop; State is safe to read from other goroutines.
type Controller struct {
	drv   mount.Driver
	clock Clock
	traj  trajectory.Trajectory
	segs  []trajectory.Segment
	opts  Options

	mu    sync.Mutex
	state State
}

// NewController validates the trajectory against the session options and
// returns a controller in the idle state. Validation failures happen here,
// before any mount command is issued.
func NewController(drv mount.Driver, clock Clock, traj trajectory.Trajectory, segs []trajectory.Segment, opts Options) (*Controller, error) {
	if len(traj) < 3 {
		return nil, fmt.Errorf("track: trajectory has %d waypoints, need at least 3", len(traj))
	}
	if len(segs) != len(traj)-1 {
		return nil, fmt.Errorf("track: %d segments do not match %d waypoints", len(segs), len(traj))
	}
	opts.setDefaults()

	if n := trajectory.UnattainableCount(segs); n > 0 {
		if !opts.AllowUnattainable {
			return nil, fmt.Errorf("track: %w (%d of %d segments)", ErrUnattainableRates, n, len(segs))
		}
		log.Printf("WARNING: %d of %d segments exceed the mount's slew limit near zenith; tracking will lag there", n, len(segs))
	}

	return &Controller{
		drv:   drv,
		clock: clock,
		traj:  traj,
		segs:  segs,
		opts:  opts,
		state: StateIdle,
	}, nil
}

// State returns the session's current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes the session to completion. It returns nil once the clock
// passes the final waypoint, or the error that aborted the session. The
// mount is left stopped on every exit path that follows a rate command.
func (c *Controller) Run(ctx context.Context) error {
	start := c.traj[0]
	log.Printf("Moving to start position: az %.2f° alt %.2f°", start.Position.Azimuth, start.Position.Altitude)

	err := mount.RetryCommand(ctx, c.opts.Retry, "slew to start", func() error {
		return c.drv.SlewToAltAz(ctx, start.Position)
	})
	if err != nil {
		c.setState(StateAborted)
		return fmt.Errorf("moving to start position: %w", err)
	}
	if err := c.waitForSlew(ctx); err != nil {
		c.setState(StateAborted)
		return err
	}

	c.setState(StateWaitingForStart)
	if wait := c.traj.Start().Sub(c.clock.Now()); wait > 0 {
		log.Printf("Waiting %s for pass start at %s", wait.Round(time.Second), c.traj.Start().Format(time.RFC3339))
		select {
		case <-ctx.Done():
			// The mount is stationary here, so aborting issues no
			// further commands.
			c.setState(StateAborted)
			return ctx.Err()
		case <-c.clock.After(wait):
		}
	}

	// Built-in tracking fights rate commands. Save the mode and restore
	// it after the pass.
	prevTracking, err := c.drv.Tracking(ctx)
	if err != nil {
		c.setState(StateAborted)
		return fmt.Errorf("reading tracking mode: %w", err)
	}
	if prevTracking {
		if err := c.drv.SetTracking(ctx, false); err != nil {
			c.setState(StateAborted)
			return fmt.Errorf("disabling tracking mode: %w", err)
		}
	}

	c.setState(StateTracking)
	log.Printf("Tracking: %d waypoints over %s", len(c.traj), c.traj.Duration().Round(time.Second))

	followErr := c.follow(ctx)

	// Stop the axes whatever happened above: an aborted session must not
	// leave the mount spinning at the last commanded rate. The parent
	// context may already be cancelled, so detach.
	c.stopMount(context.WithoutCancel(ctx), prevTracking)

	if followErr != nil {
		c.setState(StateAborted)
		return followErr
	}
	c.setState(StateDone)
	log.Printf("Pass complete")
	return nil
}

// waitForSlew polls the slewing flag until the mount settles on the lead-in
// point or the grace period runs out.
func (c *Controller) waitForSlew(ctx context.Context) error {
	deadline := c.clock.Now().Add(c.opts.SlewGrace)
	for {
		slewing, err := c.drv.Slewing(ctx)
		if err != nil {
			return fmt.Errorf("polling slew status: %w", err)
		}
		if !slewing {
			return nil
		}
		if !c.clock.Now().Before(deadline) {
			return &mount.TimeoutError{Op: "slew to start", Grace: c.opts.SlewGrace}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.opts.SlewPoll):
		}
	}
}

// follow is the tracking loop: each tick it recomputes the active segment
// from the absolute clock time and commands that segment's rates. Rate
// commands fully replace the previous pair, so a late wake-up self-corrects
// on the next tick instead of accumulating drift.
func (c *Controller) follow(ctx context.Context) error {
	var (
		idx          int
		lastRecord   time.Time
		lastProgress = c.clock.Now()
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := c.clock.Now()
		if !now.Before(c.traj.End()) {
			return nil
		}

		idx = trajectory.ActiveSegment(c.segs, idx, now)
		if idx >= len(c.segs) {
			return nil
		}
		seg := c.segs[idx]

		err := mount.RetryCommand(ctx, c.opts.Retry, "set rates", func() error {
			return c.drv.SetRates(ctx, seg.AzRate, seg.AltRate)
		})
		if err != nil {
			return fmt.Errorf("commanding segment %d rates: %w", idx, err)
		}

		if c.opts.Recorder != nil && now.Sub(lastRecord) >= c.opts.RecordInterval {
			observed, err := c.drv.Position(ctx)
			if err != nil {
				return fmt.Errorf("reading mount position: %w", err)
			}
			c.opts.Recorder.Record(now, seg.PositionAt(now), observed)
			lastRecord = now
		}

		if c.opts.OnStatus != nil {
			c.opts.OnStatus(Status{
				State:   StateTracking,
				Time:    now,
				Segment: idx,
				AzRate:  seg.AzRate,
				AltRate: seg.AltRate,
			})
		}

		if now.Sub(lastProgress) >= c.opts.ProgressInterval {
			remaining := c.traj.End().Sub(now).Round(time.Second)
			log.Printf("Tracking segment %d/%d, az rate %+.3f°/s alt rate %+.3f°/s, %s remaining",
				idx+1, len(c.segs), seg.AzRate, seg.AltRate, remaining)
			lastProgress = now
		}

		// Sleep out the rest of the tick. If the work above overran the
		// period, log and go straight to the next tick; the absolute
		// clock lookup absorbs the slip.
		elapsed := c.clock.Now().Sub(now)
		if elapsed >= c.opts.Period {
			log.Printf("WARNING: tick work took %s, longer than the %s period", elapsed, c.opts.Period)
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.opts.Period - elapsed):
		}
	}
}

// stopMount halts both axes and restores the saved tracking mode, best
// effort. Errors are logged, not returned: this runs on every exit path
// and must not mask the session's real outcome.
func (c *Controller) stopMount(ctx context.Context, restoreTracking bool) {
	if err := c.drv.StopAxes(ctx); err != nil {
		log.Printf("WARNING: failed to stop mount axes: %v", err)
	}
	if restoreTracking {
		if err := c.drv.SetTracking(ctx, true); err != nil {
			log.Printf("WARNING: failed to restore tracking mode: %v", err)
		}
	}
}
