package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"professore/audio"
	"professore/config"
	"professore/debug"
	"professore/midi"
	"professore/note"
	"professore/sequencer"
	"professore/synth"
	"professore/theme"
	"professore/tui"
	"professore/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if err := enableLogging(cfg.Log); err != nil {
		fmt.Printf("Warning: no debug log: %v\n", err)
	}
	defer debug.Disable()

	th := theme.New(theme.LoadOrDefault(cfg.UI.Palette))
	pool := note.NewPool(note.Options{
		PrefillCount: cfg.Pool.PrefillCount,
		PrefillLimit: cfg.Pool.PrefillLimit,
	})

	host := tui.NewHost()
	host.Filter = midi.KeyRangeFilter{Acute: cfg.Filter.Acute, Key: uint8(cfg.Filter.Key)}

	// Sampled voice; optional
	rate := audio.DefaultSampleRate
	host.Voice = openVoice(cfg.Voice, host)
	if host.Voice != nil {
		rate = host.Voice.Bank().Format().SampleRate
		defer host.Voice.Close()
	}

	// Render target: hardware port, else SoundFont, else none
	out, desc := openOutput(cfg.Player, rate)
	host.Output = desc
	if out != nil {
		defer out.Close()
	}

	host.Live = midi.NewAdapter(pool, func(n *note.Note) {
		if n.Pressed && out == nil && host.Voice != nil {
			host.Voice.Play(n.PitchClass)
		}
		host.Notify()
	})
	host.HandleInput = func(ev midi.InputEvent) {
		if out != nil {
			out.Send(ev.Message, int64(ev.TimestampMs)*1000)
		}
		host.Live.ControlChange(ev.Message)
	}

	host.Player = sequencer.NewPlayer(sequencer.Options{
		Pool:       pool,
		Controller: midi.NewAdapter(pool, func(*note.Note) { host.Notify() }),
		OpenDevice: func() (midi.Receiver, error) {
			if out == nil {
				return nil, errors.New("no output")
			}
			return midi.KeepOpen(out), nil
		},
		ConnectDevice: cfg.Player.ConnectDevice && out != nil,
		Forward:       cfg.Player.Forward,
		BPM:           cfg.Player.BPM,
		Listener:      host.Listener(),
	})
	host.SetFiltering(cfg.Filter.Enabled)
	defer func() {
		if err := host.Player.Close(); err != nil {
			debug.Warn("main", "%v", err)
		}
	}()

	if dir, err := sequencer.PlaylistsDir(); err == nil {
		host.SaveDir = dir
	}
	for _, path := range os.Args[1:] {
		if err := enqueue(host.Player, path); err != nil {
			fmt.Printf("Skipping %s: %v\n", path, err)
		}
	}

	// Keyboards come and go while we run
	host.Devices = midi.NewDeviceManager(cfg.Input.Preferred, cfg.Input.Excluded)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Devices.Run(ctx)

	m := tui.NewModel(host, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// enqueue takes a MIDI file or a saved playlist
func enqueue(p *sequencer.Player, path string) error {
	if filepath.Ext(path) != ".json" {
		return p.Enqueue(path)
	}
	pl, err := sequencer.LoadPlaylist(path)
	if err != nil {
		return err
	}
	return p.EnqueueSaved(pl)
}

func enableLogging(c config.LogConfig) error {
	if c.File != "" {
		return debug.EnableFile(c.File, c.Level)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	return debug.EnableFile(filepath.Join(dir, "debug.log"), c.Level)
}

func openVoice(c config.VoiceConfig, host *tui.Host) *voice.Player {
	if c.SamplesDir == "" {
		return nil
	}
	bank, err := voice.LoadSamples(os.DirFS(c.SamplesDir), ".")
	if err != nil {
		debug.Warn("main", "voice disabled: %v", err)
		return nil
	}
	v := voice.NewPlayer(voice.Options{Bank: bank, OnPlay: host.Voiced})
	v.SetStacked(c.Stacked)
	v.SetVolume(uint8(c.Volume))
	if err := v.Open(); err != nil {
		debug.Warn("main", "voice disabled: %v", err)
		return nil
	}
	return v
}

func openOutput(c config.PlayerConfig, rate int) (midi.Receiver, string) {
	port, err := midi.OpenPortReceiver(c.OutputPort)
	if err == nil {
		return port, "port"
	}
	debug.Info("main", "no output port: %v", err)

	if c.SoundFont == "" {
		return nil, "voice only"
	}
	s, err := synth.Load(c.SoundFont, rate)
	if err != nil {
		debug.Warn("main", "%v", err)
		return nil, "voice only"
	}
	if err := s.Start(); err != nil {
		debug.Warn("main", "%v", err)
		return nil, "voice only"
	}
	return s, "soundfont"
}
