// Package tray provides a system tray menu for controlling recording.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

const (
	titleStart = "● Start take"
	titleStop  = "■ Stop take"
)

// Tray represents the system tray application.
type Tray struct {
	onToggleTake func() bool
	onExport     func()
	onQuit       func()
	collecting   bool
	lastTake     string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuTake     *systray.MenuItem
	menuLastTake *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnToggleTake sets the callback run when the take item is clicked. It
// returns whether a take is open afterwards.
func (t *Tray) OnToggleTake(fn func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleTake = fn
}

// OnExport sets the callback run when "Export now" is clicked.
func (t *Tray) OnExport(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExport = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand landmark recorder")

	t.mu.Lock()
	t.menuTake = systray.AddMenuItem(takeTitle(t.collecting), "Start or stop a take")
	systray.AddSeparator()

	t.menuLastTake = systray.AddMenuItem(lastTakeTitle(t.lastTake), "Last finalized take")
	t.menuLastTake.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuExport := systray.AddMenuItem("Export now", "Export the session buffer")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuTake.ClickedCh:
				t.handleToggleTake()
			case <-menuExport.ClickedCh:
				t.handleExport()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggleTake() {
	t.mu.RLock()
	callback := t.onToggleTake
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	t.SetCollecting(callback())
}

func (t *Tray) handleExport() {
	t.mu.RLock()
	callback := t.onExport
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetCollecting updates the take item to match the session state.
func (t *Tray) SetCollecting(collecting bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.collecting = collecting
	if t.menuTake != nil {
		t.menuTake.SetTitle(takeTitle(collecting))
	}
}

// SetLastTake updates the last take display, typically with a take log line.
func (t *Tray) SetLastTake(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastTake = line
	if t.menuLastTake != nil {
		t.menuLastTake.SetTitle(lastTakeTitle(line))
	}
}

// IsCollecting returns whether the tray shows an open take.
func (t *Tray) IsCollecting() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collecting
}

// LastTake returns the text of the last take display.
func (t *Tray) LastTake() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastTake
}

func takeTitle(collecting bool) string {
	if collecting {
		return titleStop
	}
	return titleStart
}

func lastTakeTitle(line string) string {
	if line == "" {
		return "Last: none"
	}
	return "Last: " + line
}
