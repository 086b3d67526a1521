package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

// SkyView is a custom tview primitive that renders an all-sky chart with
// the pass trajectory drawn across it.
type SkyView struct {
	*tview.Box
	satellite string
	traj      trajectory.Trajectory
	segs      []trajectory.Segment
}

// NewSkyView creates a sky view for one pass.
func NewSkyView(satellite string, traj trajectory.Trajectory, segs []trajectory.Segment) *SkyView {
	sv := &SkyView{
		Box:       tview.NewBox(),
		satellite: satellite,
		traj:      traj,
		segs:      segs,
	}
	sv.SetBorder(true).SetTitle(" Sky View - Alt/Az ")
	return sv
}

// Draw renders the sky view using tcell.
func (sv *SkyView) Draw(screen tcell.Screen) {
	sv.Box.DrawForSubclass(screen, sv)

	x, y, width, height := sv.GetInnerRect()

	centerX := x + width/2
	centerY := y + height/2
	radius := width / 2
	if height < width {
		radius = height / 2
	}
	if radius < 3 {
		return
	}

	gridStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	horizonStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	zenithStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	trackStyle := tcell.StyleDefault.Foreground(tcell.ColorLightBlue)
	flaggedStyle := tcell.StyleDefault.Foreground(tcell.ColorRed)
	markStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)

	// Altitude rings at 30° and 60°; the zenith is a + at the center.
	for _, alt := range []float64{30, 60} {
		ringRadius := sv.project(alt, radius)
		if ringRadius > 0 && ringRadius < radius {
			drawCircle(screen, centerX, centerY, ringRadius, '·', gridStyle)
			label := fmt.Sprintf("%.0f°", alt)
			for i, ch := range label {
				screen.SetContent(centerX+i-len(label)/2, centerY-ringRadius-1, ch, nil, gridStyle)
			}
		}
	}
	screen.SetContent(centerX, centerY, '+', nil, zenithStyle)

	// Horizon circle.
	drawCircle(screen, centerX, centerY, radius-1, '○', horizonStyle)

	// Cardinal and intercardinal spokes.
	azimuths := []struct {
		angle float64
		label string
	}{
		{0, "N"}, {45, "NE"}, {90, "E"}, {135, "SE"},
		{180, "S"}, {225, "SW"}, {270, "W"}, {315, "NW"},
	}
	for _, az := range azimuths {
		angle := az.angle * math.Pi / 180.0
		endX := centerX + int(float64(radius)*math.Sin(angle))
		endY := centerY - int(float64(radius)*math.Cos(angle))
		drawLine(screen, centerX, centerY, endX, endY, '·', gridStyle)

		labelX := centerX + int(float64(radius+1)*math.Sin(angle))
		labelY := centerY - int(float64(radius+1)*math.Cos(angle))
		for i, ch := range az.label {
			screen.SetContent(labelX+i-len(az.label)/2, labelY, ch, nil, horizonStyle)
		}
	}

	// The pass track: a line per segment, flagged segments in red.
	for i, seg := range sv.segs {
		x0, y0, ok0 := sv.plot(seg.From.Position.Azimuth, seg.From.Position.Altitude, centerX, centerY, radius)
		x1, y1, ok1 := sv.plot(seg.To.Position.Azimuth, seg.To.Position.Altitude, centerX, centerY, radius)
		if !ok0 || !ok1 {
			continue
		}
		style := trackStyle
		if seg.Unattainable {
			style = flaggedStyle
		}
		ch := '•'
		if i%2 == 1 {
			ch = '·'
		}
		drawLine(screen, x0, y0, x1, y1, ch, style)
	}

	// Entry and exit markers with timestamps.
	first, last := sv.traj[0], sv.traj[len(sv.traj)-1]
	if px, py, ok := sv.plot(first.Position.Azimuth, first.Position.Altitude, centerX, centerY, radius); ok {
		screen.SetContent(px, py, '◉', nil, markStyle)
		for i, ch := range timeLabel(first.Time) {
			screen.SetContent(px+i+2, py, ch, nil, markStyle)
		}
	}
	if px, py, ok := sv.plot(last.Position.Azimuth, last.Position.Altitude, centerX, centerY, radius); ok {
		screen.SetContent(px, py, '◌', nil, markStyle)
		for i, ch := range timeLabel(last.Time) {
			screen.SetContent(px+i+2, py, ch, nil, markStyle)
		}
	}
}

// project maps an altitude to a ring radius using a stereographic
// projection normalized so the horizon lands on the chart edge.
func (sv *SkyView) project(alt float64, radius int) int {
	zenithAngle := (90.0 - alt) * math.Pi / 180.0
	return int(float64(radius) * math.Tan(zenithAngle/2.0))
}

// plot converts an az/alt direction to screen coordinates. Directions
// below the horizon fall outside the chart and are not drawn.
func (sv *SkyView) plot(az, alt float64, centerX, centerY, radius int) (int, int, bool) {
	if alt < 0 {
		return 0, 0, false
	}
	r := float64(sv.project(alt, radius))
	azimuthRad := az * math.Pi / 180.0
	px := centerX + int(r*math.Sin(azimuthRad))
	py := centerY - int(r*math.Cos(azimuthRad))
	return px, py, true
}

// drawCircle draws a circle using Bresenham's circle algorithm.
func drawCircle(screen tcell.Screen, cx, cy, radius int, char rune, style tcell.Style) {
	x := 0
	y := radius
	d := 3 - 2*radius

	for x <= y {
		screen.SetContent(cx+x, cy+y, char, nil, style)
		screen.SetContent(cx-x, cy+y, char, nil, style)
		screen.SetContent(cx+x, cy-y, char, nil, style)
		screen.SetContent(cx-x, cy-y, char, nil, style)
		screen.SetContent(cx+y, cy+x, char, nil, style)
		screen.SetContent(cx-y, cy+x, char, nil, style)
		screen.SetContent(cx+y, cy-x, char, nil, style)
		screen.SetContent(cx-y, cy-x, char, nil, style)

		x++
		if d > 0 {
			y--
			d = d + 4*(x-y) + 10
		} else {
			d = d + 4*x + 6
		}
	}
}

// drawLine draws a line using Bresenham's line algorithm.
func drawLine(screen tcell.Screen, x0, y0, x1, y1 int, char rune, style tcell.Style) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		screen.SetContent(x0, y0, char, nil, style)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
