package audio

import (
	"errors"
	"fmt"
	"sync"

	"professore/debug"

	"github.com/ebitengine/oto/v3"
)

// ErrRateMismatch is returned when the shared context already runs at another rate
var ErrRateMismatch = errors.New("audio: context running at another sample rate")

// oto allows one context per process
var (
	ctxMu   sync.Mutex
	otoCtx  *oto.Context
	ctxRate int
)

// Context returns the process-wide oto context, creating it at sampleRate on first use.
func Context(sampleRate int) (*oto.Context, error) {
	ctxMu.Lock()
	defer ctxMu.Unlock()

	if otoCtx != nil {
		if sampleRate != ctxRate {
			return nil, fmt.Errorf("%w: want %dHz, have %dHz", ErrRateMismatch, sampleRate, ctxRate)
		}
		return otoCtx, nil
	}

	c, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: outputChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: open context: %w", err)
	}
	<-ready

	otoCtx = c
	ctxRate = sampleRate
	debug.Info("audio", "context ready at %dHz", sampleRate)
	return otoCtx, nil
}

// ContextRate returns the rate of the shared context, or 0 before it exists
func ContextRate() int {
	ctxMu.Lock()
	defer ctxMu.Unlock()
	return ctxRate
}
