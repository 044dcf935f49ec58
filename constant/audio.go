package constant

import "time"

// Audio Output Settings
const (
	AudioSampleRate = 48000
	AudioChannels   = 2

	// AudioBufferDuration is the device buffer length for speaker and oto
	AudioBufferDuration = 100 * time.Millisecond

	// PipeBufferDuration is the write period of the CLI pipe backend
	PipeBufferDuration = 50 * time.Millisecond

	// NullBufferDuration is the tick period of the headless device
	NullBufferDuration = 10 * time.Millisecond
)

// Exercise Cycle Timing
// Root plays across the whole cycle, challenge and answer share one relative window shape
const (
	FadeInDuration     = 2 * time.Second
	FadeOutDuration    = 2 * time.Second
	RootStart          = 0
	RootFullVolume     = 16 * time.Second
	ChallengeStart     = 2 * time.Second
	AnswerStart        = 12 * time.Second
	RelativeFullVolume = 4 * time.Second

	// VoiceStart aligns the spoken answer with the answer window
	VoiceStart = AnswerStart
)

// Tone Mix
const (
	RootAmplitude     = 0.8
	RelativeAmplitude = 0.3

	// Harmonic weights relative to the fundamental
	SecondHarmonic = 0.2
	ThirdHarmonic  = 0.1

	// ToneMix scales the summed tones before the voice layer is added
	ToneMix = 0.5
)

// Session Limits
const (
	MinRepetitions = 1
	MaxRepetitions = 255
)

// HTTP Bridge
const (
	DefaultListen = "127.0.0.1:8480"
)
