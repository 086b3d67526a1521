// skyplot renders a satellite pass trajectory as a terminal sky chart:
// an all-sky view with the pass drawn as a track from entry to exit.
//
// Usage:
//
//	skyplot [flags] <pass.json>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/skywatchdev/sattrack/pkg/config"
	"github.com/skywatchdev/sattrack/pkg/ephemeris"
	"github.com/skywatchdev/sattrack/pkg/tle"
	"github.com/skywatchdev/sattrack/pkg/track"
	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

var configPath = flag.String("config", "configs/config.json", "Path to configuration file")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <pass.json>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	pass, err := config.LoadPass(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load pass: %v", err)
	}

	observer, err := cfg.Observer.CoordinatesObserver()
	if err != nil {
		log.Fatalf("Invalid observer: %v", err)
	}

	groups := make([]tle.Group, len(cfg.Data.TLEGroups))
	for i, g := range cfg.Data.TLEGroups {
		groups[i] = tle.Group(g)
	}
	catalog, err := tle.NewLoader(cfg.Data.CacheDir).LoadCatalog(ctx, groups...)
	if err != nil {
		log.Fatalf("Failed to load satellite catalog: %v", err)
	}
	entry, ok := catalog.Find(pass.Satellite)
	if !ok {
		log.Fatalf("Satellite %q not found in catalog", pass.Satellite)
	}

	oracle, err := ephemeris.New(entry, observer)
	if err != nil {
		log.Fatalf("Failed to build ephemeris: %v", err)
	}
	traj, segs, err := track.BuildTrajectory(oracle, pass.Window(), trajectory.RateModel{
		MaxSlewRate:  cfg.Telescope.MaxSlewRate,
		ZenithMargin: cfg.Telescope.ZenithMargin,
	})
	if err != nil {
		log.Fatalf("Failed to build trajectory: %v", err)
	}

	if err := runUI(pass.Satellite, traj, segs); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}

// runUI shows the sky chart until the user quits with q or Escape.
func runUI(satellite string, traj trajectory.Trajectory, segs []trajectory.Segment) error {
	app := tview.NewApplication()

	sky := NewSkyView(satellite, traj, segs)

	maxAlt := 0.0
	for _, wp := range traj {
		if wp.Position.Altitude > maxAlt {
			maxAlt = wp.Position.Altitude
		}
	}
	footer := tview.NewTextView().SetDynamicColors(true)
	fmt.Fprintf(footer, "[yellow]%s[-]  %s → %s UTC  peak %.1f°  %d waypoints",
		satellite,
		traj.Start().UTC().Format("15:04:05"),
		traj.End().UTC().Format("15:04:05"),
		maxAlt, len(traj))
	if n := trajectory.UnattainableCount(segs); n > 0 {
		fmt.Fprintf(footer, "  [red]%d unattainable segment(s)[-]", n)
	}
	fmt.Fprintf(footer, "   (q to quit)")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(sky, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(flex, true).Run()
}

// timeLabel formats a waypoint timestamp for on-chart annotation.
func timeLabel(t time.Time) string {
	return t.UTC().Format("15:04:05")
}
