package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tonestep_active_sessions",
		Help: "Number of exercise sessions currently rendering",
	})
)

// Counters
var (
	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonestep_sessions_started_total",
		Help: "Total exercise sessions started",
	})
	SessionStartFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonestep_session_start_failures_total",
		Help: "Sessions that failed to start because of configuration or device errors",
	})
	ExercisesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonestep_exercises_total",
		Help: "Exercise advances by what changed",
	}, []string{"change"})
	BuffersRenderedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonestep_buffers_rendered_total",
		Help: "Output buffers filled by the render loop",
	})
	FramesNormalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonestep_frames_normalized_total",
		Help: "Frames scaled down by peak normalisation",
	})
	VoiceDecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonestep_voice_decode_errors_total",
		Help: "Voice samples skipped because they failed to decode",
	})
	DeviceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonestep_device_errors_total",
		Help: "Output device failures by backend",
	}, []string{"backend"})
)

// Exercise change labels
const (
	ChangeRoot     = "root"
	ChangeRelative = "relative"
)
