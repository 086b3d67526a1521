// sattrack plans and runs satellite passes on an ASCOM Alpaca mount.
//
// Usage:
//
//	sattrack [flags] <pass.json> <trajectory|dryrun|execute>
//
// trajectory prints the pointing plan, dryrun replays the pass against a
// simulated mount and reports pointing error, execute drives the real mount.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/skywatchdev/sattrack/pkg/alpaca"
	"github.com/skywatchdev/sattrack/pkg/config"
	"github.com/skywatchdev/sattrack/pkg/ephemeris"
	"github.com/skywatchdev/sattrack/pkg/tle"
	"github.com/skywatchdev/sattrack/pkg/track"
	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

var (
	configPath        = flag.String("config", "configs/config.json", "Path to configuration file")
	setLocation       = flag.Bool("set-location", false, "Program the observer location into the mount before tracking")
	setTime           = flag.Bool("set-time", false, "Program the current UTC time into the mount before tracking")
	allowUnattainable = flag.Bool("allow-unattainable", false, "Track through zenith segments the mount cannot keep up with")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	flagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <pass.json> <trajectory|dryrun|execute>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	passPath, mode := flag.Arg(0), flag.Arg(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	pass, err := config.LoadPass(passPath)
	if err != nil {
		log.Fatalf("Failed to load pass: %v", err)
	}
	if *allowUnattainable {
		pass.AllowUnattainable = true
	}

	oracle, err := buildOracle(ctx, cfg, pass)
	if err != nil {
		log.Fatalf("%v", err)
	}

	window := pass.Window()
	model := trajectory.RateModel{
		MaxSlewRate:  cfg.Telescope.MaxSlewRate,
		ZenithMargin: cfg.Telescope.ZenithMargin,
	}
	opts := track.Options{
		Period:            pass.TrackingPeriod(),
		SlewGrace:         secondsToDuration(cfg.Telescope.SlewGraceSeconds),
		AllowUnattainable: pass.AllowUnattainable,
	}

	switch mode {
	case "trajectory":
		traj, segs, err := track.BuildTrajectory(oracle, window, model)
		if err != nil {
			log.Fatalf("Failed to build trajectory: %v", err)
		}
		printTrajectory(pass.Satellite, traj, segs)

	case "dryrun":
		rec, err := track.RunDryRun(ctx, oracle, window, model, opts)
		if err != nil {
			log.Fatalf("Dry run aborted: %v", err)
		}
		printStats(rec)

	case "execute":
		if err := runExecute(ctx, cfg, oracle, window, model, opts); err != nil {
			log.Fatalf("Tracking aborted: %v", err)
		}

	default:
		log.Fatalf("Unknown mode %q: want trajectory, dryrun, or execute", mode)
	}
}

// buildOracle loads the TLE catalog and constructs the look-angle oracle
// for the pass's satellite.
func buildOracle(ctx context.Context, cfg *config.Config, pass *config.PassConfig) (*ephemeris.Oracle, error) {
	observer, err := cfg.Observer.CoordinatesObserver()
	if err != nil {
		return nil, err
	}

	groups := make([]tle.Group, len(cfg.Data.TLEGroups))
	for i, g := range cfg.Data.TLEGroups {
		groups[i] = tle.Group(g)
	}

	loader := tle.NewLoader(cfg.Data.CacheDir)
	catalog, err := loader.LoadCatalog(ctx, groups...)
	if err != nil {
		return nil, fmt.Errorf("loading satellite catalog: %w", err)
	}

	entry, ok := catalog.Find(pass.Satellite)
	if !ok {
		return nil, fmt.Errorf("satellite %q not found in groups %s", pass.Satellite, strings.Join(cfg.Data.TLEGroups, ", "))
	}
	log.Printf("Using element set for %s (NORAD %d, epoch %s)",
		entry.Name, entry.NORADID, entry.Epoch.Format(time.RFC3339))

	return ephemeris.New(entry, observer)
}

// runExecute connects the real mount, optionally programs its location and
// clock, and drives the pass.
func runExecute(ctx context.Context, cfg *config.Config, oracle *ephemeris.Oracle,
	window trajectory.PassWindow, model trajectory.RateModel, opts track.Options) error {

	client := alpaca.NewClient(alpaca.Config{
		BaseURL:      cfg.Telescope.BaseURL,
		DeviceNumber: cfg.Telescope.DeviceNumber,
		MaxSlewRate:  cfg.Telescope.MaxSlewRate,
		Timeout:      secondsToDuration(cfg.Telescope.RequestTimeoutSeconds),
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
			log.Printf("WARNING: failed to disconnect from telescope: %v", err)
		}
	}()

	if *setLocation {
		log.Printf("Programming mount location: %.4f, %.4f", cfg.Observer.Latitude, cfg.Observer.Longitude)
		if err := client.SetLocation(ctx, cfg.Observer.Latitude, cfg.Observer.Longitude); err != nil {
			return err
		}
	}
	if *setTime {
		log.Printf("Programming mount clock: %s", time.Now().UTC().Format(time.RFC3339))
		if err := client.SetUTCDate(ctx, time.Now()); err != nil {
			return err
		}
	}

	return track.RunExecute(ctx, client, oracle, window, model, opts)
}

// printTrajectory renders the pointing plan as a table, one row per
// waypoint with the rates leading out of it.
func printTrajectory(satellite string, traj trajectory.Trajectory, segs []trajectory.Segment) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("Pass plan for %s: %d waypoints over %s",
		satellite, len(traj), traj.Duration().Round(time.Second))))

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-22s %9s %9s %9s %9s  %s",
		"TIME (UTC)", "AZ °", "ALT °", "AZ °/s", "ALT °/s", "")))

	for i, wp := range traj {
		azRate, altRate, note := "", "", ""
		if i < len(segs) {
			azRate = fmt.Sprintf("%+9.3f", segs[i].AzRate)
			altRate = fmt.Sprintf("%+9.3f", segs[i].AltRate)
			if segs[i].Unattainable {
				note = flagStyle.Render("UNATTAINABLE")
			}
		}
		fmt.Printf("%-22s %9.3f %9.3f %9s %9s  %s\n",
			wp.Time.UTC().Format("2006-01-02 15:04:05"),
			wp.Position.Azimuth, wp.Position.Altitude, azRate, altRate, note)
	}

	if n := trajectory.UnattainableCount(segs); n > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf(
			"%d of %d segments exceed the mount's slew limit near zenith; pass --allow-unattainable to track anyway", n, len(segs))))
	}
}

// printStats summarizes the dry-run pointing error, worst offenders first.
func printStats(rec *track.Recorder) {
	st := rec.Stats()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Dry run complete: %d samples", st.Samples)))
	fmt.Printf("  max azimuth error:  %8.4f°   rms: %8.4f°\n", st.MaxAz, st.RMSAz)
	fmt.Printf("  max altitude error: %8.4f°   rms: %8.4f°\n", st.MaxAlt, st.RMSAlt)

	samples := rec.Snapshot()
	sort.Slice(samples, func(i, j int) bool {
		return errorMagnitude(samples[i]) > errorMagnitude(samples[j])
	})
	if len(samples) > 5 {
		samples = samples[:5]
	}
	if len(samples) > 0 && errorMagnitude(samples[0]) > 0 {
		fmt.Println("  largest errors:")
		for _, s := range samples {
			fmt.Printf("    %s  az %+8.4f°  alt %+8.4f°\n",
				s.Time.UTC().Format("15:04:05"), s.AzError, s.AltError)
		}
	} else {
		fmt.Println(okStyle.Render("  simulated mount followed the trajectory exactly"))
	}
}

func errorMagnitude(s track.Sample) float64 {
	return s.AzError*s.AzError + s.AltError*s.AltError
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
