package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/constant"
	"github.com/lixenwraith/tonestep/metrics"
)

// bytesPerSample is the width of one s16le sample
const bytesPerSample = 2

// ossDevice is written directly on FreeBSD when no player is installed
const ossDevice = "/dev/dsp"

// pipePlayer is a CLI player reading raw s16le from stdin
type pipePlayer struct {
	name string
	args func(rate, channels string) []string
}

// pipePlayers in order of preference
var pipePlayers = []pipePlayer{
	{"pacat", func(rate, ch string) []string {
		return []string{"--playback", "--raw", "--format=s16le", "--rate=" + rate, "--channels=" + ch, "--latency-msec=50"}
	}},
	{"pw-cat", func(rate, ch string) []string {
		return []string{"--playback", "--format=s16", "--rate=" + rate, "--channels=" + ch, "--latency=50ms", "-"}
	}},
	{"aplay", func(rate, ch string) []string {
		return []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", ch}
	}},
	{"play", func(rate, ch string) []string {
		return []string{"-q", "-t", "raw", "-e", "signed", "-b", "16", "-r", rate, "-c", ch, "-", "-d"}
	}},
	{"ffplay", func(rate, ch string) []string {
		return []string{"-nodisp", "-loglevel", "quiet", "-fflags", "nobuffer",
			"-f", "s16le", "-ar", rate, "-ac", ch, "-i", "pipe:0"}
	}},
}

// PipeDevice streams s16le PCM to a CLI player's stdin or an OSS device
type PipeDevice struct {
	Buffer time.Duration
	Logger *zap.Logger

	// Backend skips player lookup when set
	Backend *BackendConfig

	// LookPath replaces exec.LookPath when searching for players
	LookPath func(file string) (string, error)
}

// Name implements Device
func (d *PipeDevice) Name() string {
	return BackendNamePipe
}

// resolveBackend returns the configured backend, the first installed player, or OSS on FreeBSD
func (d *PipeDevice) resolveBackend(sampleRate, channels int) (*BackendConfig, error) {
	if d.Backend != nil {
		return d.Backend, nil
	}

	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	rate, ch := strconv.Itoa(sampleRate), strconv.Itoa(channels)
	for _, p := range pipePlayers {
		if path, err := lookPath(p.name); err == nil {
			return &BackendConfig{Name: p.name, Path: path, Args: p.args(rate, ch)}, nil
		}
	}

	if runtime.GOOS == "freebsd" {
		if _, err := os.Stat(ossDevice); err == nil {
			return &BackendConfig{Name: "oss", Path: ossDevice, Direct: true}, nil
		}
	}
	return nil, ErrNoAudioBackend
}

// BuildOutputStream implements Device
// The backend process is launched here so a missing player fails before Play
func (d *PipeDevice) BuildOutputStream(channels, sampleRate int, cb Callback) (OutputStream, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend, err := d.resolveBackend(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	period := d.Buffer
	if period <= 0 {
		period = constant.PipeBufferDuration
	}
	frames := bufferFrames(sampleRate, period)

	s := &pipeStream{
		backend:  backend,
		cb:       cb,
		period:   period,
		mixBuf:   make([]float32, frames*channels),
		outBytes: make([]byte, frames*channels*bytesPerSample),
		stopChan: make(chan struct{}),
		errChan:  make(chan error, 1),
		logger:   logger.With(zap.String("backend", backend.Name)),
	}

	if backend.Direct {
		f, err := os.OpenFile(backend.Path, os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDevice, err)
		}
		s.ossFile = f
		s.output = f
	} else {
		// Exec-based backend
		cmd := exec.Command(backend.Path, backend.Args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDevice, err)
		}
		if err := cmd.Start(); err != nil {
			stdin.Close()
			return nil, fmt.Errorf("%w: %v", ErrDevice, err)
		}
		s.cmd = cmd
		s.stdin = stdin
		s.output = stdin

		// Monitor process
		s.wg.Add(1)
		go s.monitorProcess()
	}

	s.logger.Debug("audio backend started", zap.String("path", backend.Path))
	return s, nil
}

// pipeStream paces the callback with a ticker and writes its output to the backend
type pipeStream struct {
	backend *BackendConfig
	cb      Callback
	period  time.Duration
	logger  *zap.Logger

	output  io.Writer
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ossFile *os.File

	// Accessed only by loop goroutine
	mixBuf   []float32
	outBytes []byte

	playOnce sync.Once
	stopChan chan struct{}
	stopped  atomic.Bool
	errChan  chan error
	wg       sync.WaitGroup
}

func (s *pipeStream) Play() error {
	if s.stopped.Load() {
		return ErrStreamClosed
	}
	s.playOnce.Do(func() {
		s.wg.Add(1)
		go s.loop()
	})
	return nil
}

// Errors implements StreamErrors; it reports a dead player or a failed write
func (s *pipeStream) Errors() <-chan error {
	return s.errChan
}

// fail records the first failure of a running stream; later failures are dropped
func (s *pipeStream) fail(err error) {
	if s.stopped.Load() {
		return
	}
	metrics.DeviceErrorsTotal.WithLabelValues(BackendNamePipe).Inc()
	s.logger.Error("audio pipe failed", zap.Error(err))
	select {
	case s.errChan <- fmt.Errorf("%w: %v", ErrPipeClosed, err):
	default:
	}
}

// loop is the main render-and-write goroutine
func (s *pipeStream) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return

		case <-ticker.C:
			s.cb(s.mixBuf)
			floatToBytes(s.mixBuf, s.outBytes)

			if _, err := s.output.Write(s.outBytes); err != nil {
				s.fail(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

// monitorProcess watches for subprocess exit
func (s *pipeStream) monitorProcess() {
	defer s.wg.Done()

	err := s.cmd.Wait()
	if err == nil {
		err = errors.New("exited")
	}
	s.fail(fmt.Errorf("%s: %w", s.backend.Name, err))
}

// Close stops the loop and tears down the backend; no callback runs after it returns
func (s *pipeStream) Close() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopChan)

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.ossFile != nil {
		s.ossFile.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}

	s.wg.Wait()
	return nil
}

// floatToBytes converts interleaved float32 to int16 LE bytes with a hard clip
func floatToBytes(in []float32, out []byte) {
	for i, v := range in {
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(int16(v*32767)))
	}
}
