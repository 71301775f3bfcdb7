package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"professore/debug"
	"professore/midi"
	"professore/note"
	"professore/sequencer"
	"professore/voice"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	level := os.Getenv("PROFESSORE_LOG")
	if level == "" {
		level = "info"
	}
	debug.EnableTo(os.Stderr, level)

	args := os.Args[2:]
	switch os.Args[1] {
	case "list":
		listPorts()
	case "poll":
		pollDevices()
	case "scale":
		playScale(arg(args, 0))
	case "read":
		readFile(arg(args, 0))
	case "play":
		playFile(arg(args, 0), arg(args, 1))
	case "voice":
		if len(args) < 2 {
			usage()
			return
		}
		sing(args[0], args[1:])
	default:
		usage()
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                  - List all MIDI ports")
	fmt.Println("  poll                  - Poll for device changes")
	fmt.Println("  scale [port]          - Play a C major scale on an output port")
	fmt.Println("  read <file.mid>       - Print every note of a file")
	fmt.Println("  play <file.mid> [port] - Play a file, logging player events")
	fmt.Println("  voice <dir> <notes>   - Sing pitch classes from a sample directory")
	fmt.Println("")
	fmt.Println("PROFESSORE_LOG=debug|info|warn sets the log level (stderr)")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, err := midi.InPorts()
	if err != nil {
		fmt.Printf("\n%v\n", err)
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}

	outs, err := midi.OutPorts()
	if err != nil {
		fmt.Printf("\n%v\n", err)
		return
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func playScale(port string) {
	out, err := midi.OpenPortReceiver(port)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer out.Close()

	fmt.Println("Playing C major scale...")
	for _, key := range []uint8{60, 62, 64, 65, 67, 69, 71, 72} {
		out.Send(gomidi.NoteOn(0, key, note.VelocityMF), 0)
		time.Sleep(250 * time.Millisecond)
		out.Send(gomidi.NoteOff(0, key), 0)
	}
	fmt.Println("Done!")
}

func readFile(path string) {
	if path == "" {
		usage()
		return
	}
	pool := note.NewPool(note.Options{})
	notes, err := sequencer.Read(path, pool)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for i, n := range notes {
		fmt.Printf("%4d  track %d  ch %2d  %-4s %-8s vel %3d\n",
			i, n.Track, n.Channel, n.Name(), pressedLabel(n.Pressed), n.Velocity)
		pool.Release(n)
	}
	fmt.Printf("%d notes\n", len(notes))
}

func pressedLabel(pressed bool) string {
	if pressed {
		return "pressed"
	}
	return "released"
}

func playFile(path, port string) {
	if path == "" {
		usage()
		return
	}

	done := make(chan struct{}, 1)
	p := sequencer.NewPlayer(sequencer.Options{
		Controller: midi.NewAdapter(nil, func(n *note.Note) {
			if n.Pressed {
				fmt.Printf("  %s\n", n.Name())
			}
		}),
		OpenDevice: func() (midi.Receiver, error) {
			return midi.OpenPortReceiver(port)
		},
		ConnectDevice: true,
		Forward:       true,
		Listener: sequencer.ListenerFuncs{
			OnPlaying: func(_ *sequencer.Player, title string, seq *smf.SMF) {
				fmt.Printf("[%s] playing %s (%d tracks)\n", time.Now().Format("15:04:05"), title, len(seq.Tracks))
			},
			OnStopped: func(*sequencer.Player) {
				select {
				case done <- struct{}{}:
				default:
				}
			},
		},
	})
	defer p.Close()

	if err := p.Enqueue(path); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	select {
	case <-done:
		fmt.Println("Done!")
	case <-interrupt:
		fmt.Println("Interrupted")
	}
}

func sing(dir string, names []string) {
	bank, err := voice.LoadSamples(os.DirFS(dir), ".")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Loaded %d samples (%s)\n", bank.Len(), bank.Format())

	v := voice.NewPlayer(voice.Options{
		Bank:   bank,
		OnPlay: func(pc note.PitchClass) { fmt.Printf("  %s\n", pc) },
	})
	if err := v.Open(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	for _, name := range names {
		pc, ok := note.ParsePitchClass(name)
		if !ok {
			fmt.Printf("Unknown pitch %q\n", name)
			continue
		}
		v.Play(pc)
	}
	v.Close()
	<-v.Done()
	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a keyboard to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ins, _ := midi.InPorts()
		outs, _ := midi.OutPorts()

		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
