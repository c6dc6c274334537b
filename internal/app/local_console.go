// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

const (
	fieldWidth  = 41 // odd so the centre falls on a cell
	fieldHeight = 17
	markerRune  = 'o'
)

var (
	styleFrame  = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleMarker = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePaused = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// consoleView is the local terminal viewer: it owns a mock source and a
// controller and renders the offset inside a box.
type consoleView struct {
	screen tcell.Screen
	src    motion.Source
	ctrl   *steering.Controller
	meter  *steering.FrameMeter
	mode   steering.Mode
	fps    float64
}

// RunLocalConsole runs the whole pipeline in-process on the mock source and
// draws it in the terminal. q or Esc quits, space pauses, m switches mode.
func RunLocalConsole() error {
	cfg := config.Get()

	ctrl, err := steering.New(cfg.SteeringSettings())
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	v := &consoleView{
		screen: screen,
		src:    motion.NewMockSource(),
		ctrl:   ctrl,
		meter:  steering.NewFrameMeter(time.Second),
		mode:   steering.Mode(cfg.SteeringMode),
	}
	return v.run(cfg)
}

func (v *consoleView) run(cfg *config.Config) error {
	sampleTicker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer sampleTicker.Stop()
	frameTicker := time.NewTicker(time.Duration(cfg.FrameInterval) * time.Millisecond)
	defer frameTicker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !v.handleInput(ev, cfg) {
				return nil
			}

		case <-sampleTicker.C:
			s, err := v.src.Next()
			if err != nil {
				log.Printf("console: mock source error: %v", err)
				continue
			}
			v.ctrl.HandleSample(s)

		case t := <-frameTicker.C:
			v.ctrl.Tick(t)
			if fps, ok := v.meter.Frame(t); ok {
				v.fps = fps
			}
			v.draw()
		}
	}
}

func (v *consoleView) handleInput(ev tcell.Event, cfg *config.Config) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			if v.ctrl.Paused() {
				v.ctrl.Resume()
			} else {
				v.ctrl.Pause()
			}
		case 'm':
			next := steering.ModeEase
			if v.mode == steering.ModeEase {
				next = steering.ModeIntent
			}
			s := cfg.SteeringSettings()
			s.Mode = next
			if err := v.ctrl.Apply(s); err == nil {
				v.mode = next
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *consoleView) draw() {
	drawSteering(v.screen, v.ctrl.Status(), v.fps)
	v.screen.Show()
}

// markerCell maps an offset in [-1, 1]² to a cell inside a w×h field.
// Positive Y is drawn upwards.
func markerCell(x, y float64, w, h int) (col, row int) {
	halfW := float64(w-1) / 2
	halfH := float64(h-1) / 2
	col = int(math.Round(halfW + clampUnit(x)*halfW))
	row = int(math.Round(halfH - clampUnit(y)*halfH))
	return col, row
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// drawSteering renders the field box, the marker and the status lines.
func drawSteering(screen tcell.Screen, st steering.Status, fps float64) {
	screen.Clear()

	// Box: the field occupies cells 1..fieldWidth, 1..fieldHeight.
	for c := 0; c <= fieldWidth+1; c++ {
		screen.SetContent(c, 0, '-', nil, styleFrame)
		screen.SetContent(c, fieldHeight+1, '-', nil, styleFrame)
	}
	for r := 1; r <= fieldHeight; r++ {
		screen.SetContent(0, r, '|', nil, styleFrame)
		screen.SetContent(fieldWidth+1, r, '|', nil, styleFrame)
	}
	cx, cy := markerCell(0, 0, fieldWidth, fieldHeight)
	screen.SetContent(cx+1, cy+1, '+', nil, styleFrame)

	col, row := markerCell(st.Offset.X, st.Offset.Y, fieldWidth, fieldHeight)
	screen.SetContent(col+1, row+1, markerRune, nil, styleMarker)

	x0 := fieldWidth + 4
	lines := []string{
		fmt.Sprintf("mode    %s", st.Mode),
		fmt.Sprintf("angles  x=%6.1f° y=%6.1f°", st.Angles.DegreeX, st.Angles.DegreeY),
		fmt.Sprintf("target  x=%+6.3f y=%+6.3f", st.Target.X, st.Target.Y),
		fmt.Sprintf("intent  x=%+2.0f     y=%+2.0f", st.IntentX, st.IntentY),
		fmt.Sprintf("offset  x=%+6.3f y=%+6.3f", st.Offset.X, st.Offset.Y),
		fmt.Sprintf("samples %d  frames %d", st.Samples, st.Frames),
		fmt.Sprintf("fps     %.1f", fps),
		"",
		"space pause  m mode  q quit",
	}
	for i, line := range lines {
		drawText(screen, x0, 1+i, line, styleText)
	}
	if st.Paused {
		drawText(screen, x0, 2+len(lines), "PAUSED", stylePaused)
	}
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
