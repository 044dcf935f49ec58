package audio

import (
	"errors"
)

// BackendConfig describes how the pipe device reaches a player
// Direct backends are device files written in place of a player's stdin
type BackendConfig struct {
	Name   string
	Path   string
	Args   []string
	Direct bool
}

// Sentinel errors
var (
	ErrDevice         = errors.New("audio device unavailable")
	ErrNoAudioBackend = errors.New("no compatible audio backend found")
	ErrPipeClosed     = errors.New("audio pipe closed")
	ErrStreamClosed   = errors.New("output stream closed")
)
