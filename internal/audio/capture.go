package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Mode selects which audio sources a capture records.
type Mode string

const (
	ModeMic    Mode = "mic"
	ModeSystem Mode = "system"
	ModeBoth   Mode = "both"
)

// ParseMode validates a user-supplied capture mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMic, ModeSystem, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown capture mode %q (want mic, system, or both)", s)
}

// Devices identifies the input devices a capture reads from. The loopback
// device is an output-monitor input that reproduces what the system plays.
type Devices struct {
	Mic      string
	Loopback string
}

const (
	// System loopback inputs are recorded quieter than microphones, so they
	// get a heavier gain in the filter chain.
	micGain    = "1.0"
	systemGain = "2.5"

	sampleRate = "48000"

	// Per-input packet queue, kept small so capture latency stays low.
	inputQueueSize = "64"

	gracefulStopTimeout = 5 * time.Second
)

// CaptureOptions parameterises one ffmpeg invocation for one segment.
type CaptureOptions struct {
	Mode       Mode
	Devices    Devices
	OutputPath string
	FFmpegBin  string
}

// Capture supervises a single ffmpeg capture process writing one segment
// file. A Capture is single-use: start it, optionally stop it, throw it away.
type Capture struct {
	opts   CaptureOptions
	health ProcessHealthCheck

	// OnProgress, when set before Start, receives the elapsed seconds parsed
	// from ffmpeg's status line.
	OnProgress func(seconds float64)

	mu            sync.Mutex
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	quitRequested bool

	done    chan struct{}
	waitErr error
	logFile *os.File
}

// NewCapture builds an adapter for one segment. health may be nil, in which
// case a signal-probe check is used.
func NewCapture(opts CaptureOptions, health ProcessHealthCheck) *Capture {
	if opts.FFmpegBin == "" {
		opts.FFmpegBin = "ffmpeg"
	}
	if health == nil {
		health = SignalProbe{}
	}
	return &Capture{opts: opts, health: health, done: make(chan struct{})}
}

// Args builds the ffmpeg argument list for the configured mode and devices.
// All streams are resampled to 48kHz and written as uncompressed stereo
// 16-bit PCM; wall-clock timestamps keep multi-hour recordings from drifting
// against real time.
func (c *Capture) Args() []string {
	var args []string

	input := func(device string) {
		args = append(args,
			"-f", "avfoundation",
			"-thread_queue_size", inputQueueSize,
			"-use_wallclock_as_timestamps", "1",
			"-i", ":"+device,
		)
	}

	var filter string
	switch c.opts.Mode {
	case ModeMic:
		input(c.opts.Devices.Mic)
		filter = "[0:a]volume=" + micGain + ",aresample=" + sampleRate + "[out]"
	case ModeSystem:
		input(c.opts.Devices.Loopback)
		filter = "[0:a]volume=" + systemGain + ",aresample=" + sampleRate + "[out]"
	case ModeBoth:
		input(c.opts.Devices.Mic)
		input(c.opts.Devices.Loopback)
		// duration=longest so the mix is never shorter than the longer input.
		filter = "[0:a]volume=" + micGain + ",aresample=" + sampleRate + "[a0];" +
			"[1:a]volume=" + systemGain + ",aresample=" + sampleRate + "[a1];" +
			"[a0][a1]amix=inputs=2:duration=longest:dropout_transition=0[out]"
	}

	args = append(args,
		"-filter_complex", filter,
		"-map", "[out]",
		"-acodec", "pcm_s16le",
		"-ar", sampleRate,
		"-ac", "2",
		"-y",
		c.opts.OutputPath,
	)
	return args
}

// Start spawns the capture process and begins consuming its status stream.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return fmt.Errorf("capture already started")
	}

	cmd := exec.CommandContext(ctx, c.opts.FFmpegBin, c.Args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening capture stdin: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("opening capture stderr: %w", err)
	}

	// Keep the raw ffmpeg output next to the recording for diagnostics.
	if logFile, err := os.Create(c.opts.OutputPath + ".ffmpeg.log"); err == nil {
		c.logFile = logFile
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		if c.logFile != nil {
			c.logFile.Close()
			c.logFile = nil
		}
		return fmt.Errorf("spawning capture process: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin

	go c.consumeStatus(stderr)
	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		c.waitErr = err
		if c.logFile != nil {
			c.logFile.Close()
		}
		c.mu.Unlock()
		close(c.done)
	}()

	return nil
}

// ffmpeg reports progress on stderr as "... time=00:01:23.45 bitrate=...".
var progressRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

func (c *Capture) consumeStatus(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanCarriageLines)
	for scanner.Scan() {
		line := scanner.Text()
		if c.logFile != nil {
			fmt.Fprintln(c.logFile, line)
		}
		if c.OnProgress == nil {
			continue
		}
		if m := progressRe.FindStringSubmatch(line); m != nil {
			h, _ := strconv.Atoi(m[1])
			min, _ := strconv.Atoi(m[2])
			sec, _ := strconv.ParseFloat(m[3], 64)
			c.OnProgress(float64(h)*3600 + float64(min)*60 + sec)
		}
	}
}

// scanCarriageLines splits on \n or \r, since ffmpeg rewrites its status
// line with bare carriage returns.
func scanCarriageLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Stop requests a graceful shutdown over the process's control channel and
// waits up to the fixed timeout before force-terminating. The returned bool
// reports whether the process honoured the quit request.
func (c *Capture) Stop() (graceful bool, err error) {
	c.mu.Lock()
	if c.cmd == nil {
		c.mu.Unlock()
		return false, fmt.Errorf("capture not started")
	}
	c.quitRequested = true
	// ffmpeg treats "q" on stdin as an interactive quit.
	_, writeErr := io.WriteString(c.stdin, "q")
	c.stdin.Close()
	c.mu.Unlock()

	select {
	case <-c.done:
		return writeErr == nil, nil
	case <-time.After(gracefulStopTimeout):
		c.Kill()
		<-c.done
		return false, nil
	}
}

// Kill force-terminates the capture process.
func (c *Capture) Kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
}

// Alive reports whether the underlying process is still running.
func (c *Capture) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return false
	}
	return c.health.Alive(c.cmd.Process.Pid)
}

// Done is closed once the capture process has exited.
func (c *Capture) Done() <-chan struct{} { return c.done }

// OutputPath returns the segment file this capture writes.
func (c *Capture) OutputPath() string { return c.opts.OutputPath }
