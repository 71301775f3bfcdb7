package midi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"professore/debug"

	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// Ports that are never auto-connected
var DefaultExcluded = []string{"Midi Through", "Through Port", "Dummy"}

// DeviceManager handles hot-plug detection of MIDI keyboards
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration

	preferred []string
	excluded  []string

	listIns func() ([]string, error)
	open    func(name string) (Controller, error)
}

// NewDeviceManager creates a device manager. When preferred is non-empty
// only inputs matching one of its patterns are connected.
func NewDeviceManager(preferred, excluded []string) *DeviceManager {
	if excluded == nil {
		excluded = DefaultExcluded
	}
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		preferred:   preferred,
		excluded:    excluded,
		listIns:     inPortNames,
		open:        openKeyboard,
	}
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	snapshot := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		snapshot[k] = v
	}
	return snapshot
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	names, err := dm.listIns()
	if err != nil {
		// CoreMIDI is hung - skip this scan
		debug.Warn("devices", "scan: %v", err)
		return
	}

	seenIDs := make(map[string]bool)
	for _, name := range names {
		if !dm.wanted(name) {
			continue
		}
		seenIDs[name] = true

		dm.mu.RLock()
		_, exists := dm.controllers[name]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		ctrl, err := dm.open(name)
		if err != nil {
			debug.Warn("devices", "connect %s: %v", name, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[name] = ctrl
		dm.mu.Unlock()

		debug.Info("devices", "connected %s", name)
		dm.events <- DeviceEvent{
			Type:       DeviceConnected,
			Controller: ctrl,
			ID:         name,
		}
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
		debug.Info("devices", "disconnected %s", id)
		dm.events <- DeviceEvent{
			Type: DeviceDisconnected,
			ID:   id,
		}
	}
	dm.mu.Unlock()
}

// wanted applies the excluded and preferred patterns
func (dm *DeviceManager) wanted(name string) bool {
	for _, pat := range dm.excluded {
		if containsCI(name, pat) {
			debug.Log("devices", "input excluded: %s", name)
			return false
		}
	}
	if len(dm.preferred) == 0 {
		return true
	}
	for _, pat := range dm.preferred {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

func inPortNames() ([]string, error) {
	ins, err := InPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

func openKeyboard(name string) (Controller, error) {
	ins, err := InPorts()
	if err != nil {
		return nil, err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("input %q not found", name)
	}
	if isLaunchpad(name) {
		return openLaunchpad(found)
	}
	return NewKeyboardController(name, found)
}
