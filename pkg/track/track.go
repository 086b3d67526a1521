package track

import (
	"context"

	"github.com/skywatchdev/sattrack/pkg/mount"
	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

// BuildTrajectory builds the padded trajectory and its rate segments
// without touching any mount. This is the whole of plot mode.
func BuildTrajectory(oracle trajectory.Oracle, window trajectory.PassWindow, model trajectory.RateModel) (trajectory.Trajectory, []trajectory.Segment, error) {
	traj, err := trajectory.Build(oracle, window)
	if err != nil {
		return nil, nil, err
	}
	segs, err := model.Segments(traj)
	if err != nil {
		return nil, nil, err
	}
	return traj, segs, nil
}

// RunDryRun replays the pass against a simulated mount, starting
// immediately regardless of the pass's scheduled time, and returns the
// pointing-error log. The recorder is returned even when the session
// aborts, holding whatever was sampled before the failure.
func RunDryRun(ctx context.Context, oracle trajectory.Oracle, window trajectory.PassWindow, model trajectory.RateModel, opts Options) (*Recorder, error) {
	traj, segs, err := BuildTrajectory(oracle, window, model)
	if err != nil {
		return nil, err
	}

	var clock Clock
	if opts.TimeScale > 1 {
		clock = NewScaledClock(traj.Start(), opts.TimeScale)
	} else {
		clock = NewOffsetClock(traj.Start())
	}
	sim := mount.NewSimulator(clock.Now)

	if opts.Recorder == nil {
		opts.Recorder = NewRecorder()
	}
	ctrl, err := NewController(sim, clock, traj, segs, opts)
	if err != nil {
		return nil, err
	}
	return opts.Recorder, ctrl.Run(ctx)
}

// RunExecute drives the real mount along the pass on the wall clock.
func RunExecute(ctx context.Context, drv mount.Driver, oracle trajectory.Oracle, window trajectory.PassWindow, model trajectory.RateModel, opts Options) error {
	traj, segs, err := BuildTrajectory(oracle, window, model)
	if err != nil {
		return err
	}
	ctrl, err := NewController(drv, RealClock(), traj, segs, opts)
	if err != nil {
		return err
	}
	return ctrl.Run(ctx)
}
