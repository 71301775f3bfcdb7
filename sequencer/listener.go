package sequencer

import "gitlab.com/gomidi/midi/v2/smf"

// Listener is notified of playback transitions. Playing and Stopped come
// from the player's worker goroutine; Paused and Resumed from the caller.
type Listener interface {
	Playing(p *Player, title string, seq *smf.SMF)
	Paused(p *Player)
	Resumed(p *Player)
	Stopped(p *Player)
}

// ListenerFuncs implements Listener with optional funcs
type ListenerFuncs struct {
	OnPlaying func(p *Player, title string, seq *smf.SMF)
	OnPaused  func(p *Player)
	OnResumed func(p *Player)
	OnStopped func(p *Player)
}

func (l ListenerFuncs) Playing(p *Player, title string, seq *smf.SMF) {
	if l.OnPlaying != nil {
		l.OnPlaying(p, title, seq)
	}
}

func (l ListenerFuncs) Paused(p *Player) {
	if l.OnPaused != nil {
		l.OnPaused(p)
	}
}

func (l ListenerFuncs) Resumed(p *Player) {
	if l.OnResumed != nil {
		l.OnResumed(p)
	}
}

func (l ListenerFuncs) Stopped(p *Player) {
	if l.OnStopped != nil {
		l.OnStopped(p)
	}
}
