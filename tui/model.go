package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"professore/midi"
	"professore/note"
	"professore/sequencer"
	"professore/theme"
	"professore/widgets"
)

const (
	bpmStep    = 5
	volumeStep = 10
	keyLow     = 36
	keyHigh    = 96
	refresh    = 200 * time.Millisecond
)

// pianoKeys maps the bottom letter row to one octave
var pianoKeys = map[string]note.PitchClass{
	"z": note.C, "s": note.CSharp, "x": note.D, "d": note.DSharp,
	"c": note.E, "v": note.F, "g": note.FSharp, "b": note.G,
	"h": note.GSharp, "n": note.A, "j": note.ASharp, "m": note.B,
}

type Model struct {
	host     *Host
	Theme    *theme.Theme
	quitting bool
	devices  map[string]bool
}

type UpdateMsg struct{}

type TickMsg time.Time

type DeviceEventMsg midi.DeviceEvent

func NewModel(host *Host, th *theme.Theme) Model {
	return Model{
		host:    host,
		Theme:   th,
		devices: make(map[string]bool),
	}
}

func ListenForUpdates(host *Host) tea.Cmd {
	return func() tea.Msg {
		<-host.Updates
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event := <-deviceMgr.Events()
		return DeviceEventMsg(event)
	}
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.host),
		ListenForDevices(m.host.Devices),
		tick(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	h := m.host
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if pc, ok := pianoKeys[key]; ok {
			if h.Voice != nil {
				h.Voice.Play(pc)
			}
			return m, nil
		}

		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case " ", "space":
			if h.Player.IsPaused() {
				h.Player.Resume()
			} else {
				h.Player.Pause()
			}

		case "enter":
			if err := h.Player.Play(); err != nil {
				h.SetStatus("play: %v", err)
			}

		case ".":
			h.Player.Stop()

		case "r":
			h.Player.Reset()

		case "+", "=":
			h.Player.SetBPM(h.Player.BPM() + bpmStep)

		case "-", "_":
			h.Player.SetBPM(max(bpmStep, h.Player.BPM()-bpmStep))

		case "]":
			if h.Voice != nil {
				h.Voice.SetVolume(uint8(min(100, int(h.Voice.Volume())+volumeStep)))
			}

		case "[":
			if h.Voice != nil {
				h.Voice.SetVolume(uint8(max(0, int(h.Voice.Volume())-volumeStep)))
			}

		case "t":
			if h.Voice != nil {
				h.Voice.SetStacked(!h.Voice.IsStacked())
			}

		case "f":
			if h.Filter != nil {
				h.SetFiltering(!h.Filtering())
			}

		case "w":
			path, err := sequencer.SavePlaylist(h.SaveDir, "", h.Player.Queued())
			if err != nil {
				h.SetStatus("save: %v", err)
			} else {
				h.SetStatus("saved %s", filepath.Base(path))
			}
		}

	case UpdateMsg:
		return m, ListenForUpdates(h)

	case TickMsg:
		m.showHeld()
		return m, tick()

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		switch event.Type {
		case midi.DeviceConnected:
			m.devices[event.ID] = true
			if h.HandleInput != nil {
				go func(c midi.Controller) {
					for ev := range c.Events() {
						h.HandleInput(ev)
					}
				}(event.Controller)
			}
		case midi.DeviceDisconnected:
			delete(m.devices, event.ID)
		}
		return m, ListenForDevices(h.Devices)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	h := m.host

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	statusStyle := lipgloss.NewStyle().
		Foreground(m.Theme.FG()).
		Background(m.Theme.Muted()).
		Padding(0, 1)

	sym := m.Theme.Symbols
	state := sym.Stopped
	switch {
	case h.Player.IsPaused():
		state = sym.Paused
	case h.Player.IsPlaying():
		state = sym.Playing
	}

	pos := time.Duration(h.Player.MicrosecondPosition()) * time.Microsecond
	header := headerStyle.Render(fmt.Sprintf("professore  %c %-24s %3.0fbpm  %s  queue:%d  -> %s",
		state, h.Title(), h.Player.BPM(), formatPosition(pos), h.Player.PlaylistSize(), h.Output))

	held := h.Held()
	keyboard := widgets.RenderKeyboard(keyLow, keyHigh, func(k uint8) bool { return held[k] }, widgets.KeyboardStyle{
		White:      sym.WhiteKey,
		Black:      sym.BlackKey,
		Held:       sym.Held,
		WhiteColor: m.Theme.Palette.Lookup(theme.RoleFG),
		BlackColor: m.Theme.Palette.Lookup(theme.RoleSurface),
		HeldColor:  m.Theme.Palette.Lookup(theme.RoleSuccess),
	})

	var voiceLine string
	if h.Voice != nil {
		mode := "stacked"
		if !h.Voice.IsStacked() {
			mode = "latest"
		}
		voiceLine = fmt.Sprintf("voice  vol %3d  %s  last %s", h.Voice.Volume(), mode, h.LastVoiced())
	} else {
		voiceLine = "voice  no samples"
	}
	if h.Filter != nil && h.Filtering() {
		voiceLine += "  filter on"
	}

	var devices []string
	for id := range m.devices {
		devices = append(devices, id)
	}
	deviceLine := "inputs  none"
	if len(devices) > 0 {
		deviceLine = "inputs  " + strings.Join(devices, ", ")
	}

	help := dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "Transport", Keys: []widgets.KeyBinding{
			{Key: "enter", Desc: "play queue"},
			{Key: "space", Desc: "pause / resume"},
			{Key: ".", Desc: "skip"},
			{Key: "r", Desc: "rewind current"},
			{Key: "+/-", Desc: "tempo"},
			{Key: "w", Desc: "save playlist"},
		}},
		{Title: "Voice", Keys: []widgets.KeyBinding{
			{Key: "z..m", Desc: "sing a pitch"},
			{Key: "[ ]", Desc: "volume"},
			{Key: "t", Desc: "stacked / latest"},
			{Key: "f", Desc: "key filter"},
			{Key: "q", Desc: "quit"},
		}},
	}))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(keyboard)
	out.WriteString("\n\n")
	out.WriteString(voiceLine)
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(deviceLine))
	out.WriteString("\n\n")
	out.WriteString(help)

	if status := h.Status(); status != "" {
		out.WriteString("\n\n")
		out.WriteString(statusStyle.Render(status))
	}

	return out.String()
}

// showHeld mirrors held keys on controllers that have lights
func (m Model) showHeld() {
	if m.host.Devices == nil {
		return
	}
	held := m.host.Held()
	on := m.Theme.Palette.Lookup(theme.RoleSuccess)
	off := m.Theme.Palette.Lookup(theme.RoleBG)
	for _, c := range m.host.Devices.Controllers() {
		if d, ok := c.(midi.HeldDisplay); ok {
			d.ShowHeld(func(k uint8) bool { return held[k] }, on, off)
		}
	}
}

func formatPosition(d time.Duration) string {
	return fmt.Sprintf("%02d:%04.1f", int(d.Minutes()), d.Seconds()-60*float64(int(d.Minutes())))
}
