package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/constant"
	"github.com/lixenwraith/tonestep/envelope"
	"github.com/lixenwraith/tonestep/note"
	"github.com/lixenwraith/tonestep/player"
)

// noteKeys maps the top keyboard row to scale degrees in keyboard order
var noteKeys = [note.Count]rune{'1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '-', '='}

const gainBarWidth = 24

// App is the terminal host for exercise sessions
type App struct {
	screen  tcell.Screen
	manager *player.Manager
	logger  *zap.Logger

	selected    note.Set
	repetitions int
	handle      *player.Handle
	status      string
}

// NewApp creates an app over an initialised screen
func NewApp(screen tcell.Screen, manager *player.Manager, selected note.Set, repetitions int, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if selected == nil {
		selected = note.NewSet()
	}
	return &App{
		screen:      screen,
		manager:     manager,
		logger:      logger,
		selected:    selected,
		repetitions: repetitions,
		status:      "space: start/stop  1-0 - =: toggle notes  [ ]: repetitions  a: all  c: clear  q: quit",
	}
}

// handleEvent applies one terminal event, returning false when the app should exit
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}

	r := ev.Rune()
	switch r {
	case 'q':
		return false
	case ' ':
		a.toggleSession()
		return true
	case '[':
		if a.repetitions > 1 {
			a.repetitions--
			a.restartIfRunning()
		}
		return true
	case ']':
		if a.repetitions < constant.MaxRepetitions {
			a.repetitions++
			a.restartIfRunning()
		}
		return true
	case 'a':
		a.selected = note.NewSet(note.All()...)
		a.restartIfRunning()
		return true
	case 'c':
		a.selected = note.NewSet()
		a.stopSession()
		return true
	}

	for i, k := range noteKeys {
		if k == r {
			n := note.FromIndex(i)
			if a.selected.Contains(n) {
				delete(a.selected, n)
			} else {
				a.selected[n] = struct{}{}
			}
			a.restartIfRunning()
			break
		}
	}
	return true
}

func (a *App) running() bool {
	return a.handle != nil && a.handle.Running()
}

func (a *App) toggleSession() {
	if a.running() {
		a.stopSession()
		return
	}
	a.startSession()
}

func (a *App) startSession() {
	h, err := a.manager.Start(a.selected, a.repetitions)
	if err != nil {
		a.handle = nil
		a.status = "start failed: " + err.Error()
		a.logger.Warn("session start failed", zap.Error(err))
		return
	}
	a.handle = h
	a.status = "playing " + strings.Join(a.selected.Labels(), " ")
}

func (a *App) stopSession() {
	if a.handle != nil {
		a.handle.Stop()
		a.handle = nil
	}
	a.status = "stopped"
}

func (a *App) restartIfRunning() {
	if !a.running() {
		return
	}
	if len(a.selected) == 0 {
		a.stopSession()
		return
	}
	a.startSession()
}

func (a *App) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (a *App) draw() {
	a.screen.Clear()

	title := tcell.StyleDefault.Bold(true)
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)
	on := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	off := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	a.drawText(1, 0, title, "tonestep")

	x := 1
	for i, n := range note.All() {
		style := off
		if a.selected.Contains(n) {
			style = on
		}
		a.drawText(x, 2, dim, string(noteKeys[i]))
		a.drawText(x, 3, style, fmt.Sprintf("%-3s", n))
		x += 4
	}
	a.drawText(1, 5, off, fmt.Sprintf("repetitions: %d", a.repetitions))

	if a.running() {
		a.drawSession(7)
	} else {
		a.drawText(1, 7, dim, "no session")
	}

	_, h := a.screen.Size()
	a.drawText(1, h-1, dim, a.status)
	a.screen.Show()
}

func (a *App) drawSession(y int) {
	snap := a.handle.Snapshot()
	e := snap.Exercise
	style := tcell.StyleDefault

	a.drawText(1, y, style, fmt.Sprintf("root %-3s relative %-3s interval %-3s  repetition %d/%d  %5.1fs",
		e.Root, e.Relative, e.Interval, snap.Repetition, snap.Repetitions, snap.Elapsed.Seconds()))

	rows := []struct {
		label string
		phase envelope.Phase
		gain  float64
	}{
		{"root     ", snap.Command.Root, snap.Command.RootGain},
		{"challenge", snap.Command.Challenge, relativeGain(snap.Command.Challenge, snap.Command.RelativeGain)},
		{"answer   ", snap.Command.Answer, relativeGain(snap.Command.Answer, snap.Command.RelativeGain)},
	}
	for i, row := range rows {
		a.drawText(1, y+2+i, style, fmt.Sprintf("%s %-10s %s", row.label, row.phase, gainBar(row.gain)))
	}

	voice := "silent"
	if snap.Command.Voice {
		voice = fmt.Sprintf("answer %s", e.Interval)
	}
	a.drawText(1, y+6, style, "voice     "+voice)
}

// relativeGain attributes the shared relative gain to the layer that is sounding
func relativeGain(p envelope.Phase, gain float64) float64 {
	if p == envelope.Silent {
		return 0
	}
	return gain
}

func gainBar(gain float64) string {
	n := int(gain*gainBarWidth + 0.5)
	if n < 0 {
		n = 0
	}
	if n > gainBarWidth {
		n = gainBarWidth
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", gainBarWidth-n) + "]"
}

// run drives redraws and input until the user quits
func (a *App) run() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			eventChan <- ev
		}
	}()

	a.draw()
	for {
		select {
		case ev, ok := <-eventChan:
			if !ok || !a.handleEvent(ev) {
				return
			}
			a.draw()

		case <-ticker.C:
			a.draw()
		}
	}
}
