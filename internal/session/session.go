// Package session owns the lifecycle of one audio recording: start, pause
// and resume across capture-process segments, crash detection, and the final
// stop that stitches segments back into a single file.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IsmailofficialGithub/meeting-transcript/internal/audio"
)

// State is the lifecycle position of a session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopping  State = "stopping"
	StateStopped   State = "stopped"
	StateCrashed   State = "crashed"
)

// Segment is one continuous capture-process output file, bounded by
// pause/resume events. Immutable once its capture has stopped.
type Segment struct {
	Path      string
	Index     int
	StartedAt time.Time
}

// Gap records an interval during which no audio was captured. End stays nil
// while the session is paused; it is filled on resume, crash, or stop.
type Gap struct {
	Start    time.Time
	End      *time.Time
	Duration time.Duration
}

// CaptureProcess is the slice of the capture adapter the controller drives.
type CaptureProcess interface {
	Start(ctx context.Context) error
	Stop() (graceful bool, err error)
	Kill()
	Alive() bool
}

// CaptureFactory builds one capture process per segment.
type CaptureFactory func(opts audio.CaptureOptions, onProgress func(seconds float64)) CaptureProcess

// ConcatFunc joins segment files into the first segment's path.
type ConcatFunc func(ctx context.Context, ffmpegBin string, paths []string) error

var (
	ErrSessionActive = errors.New("a recording session is already active")
	ErrDeviceMissing = errors.New("required capture device not configured")
	ErrInvalidState  = errors.New("operation not valid in current state")
)

const defaultHealthInterval = 10 * time.Second

// Controller creates sessions and enforces the at-most-one-active rule.
// The session handle it returns is the only way to drive a recording.
type Controller struct {
	mu     sync.Mutex
	active *Session

	ffmpegBin      string
	factory        CaptureFactory
	concat         ConcatFunc
	now            func() time.Time
	healthInterval time.Duration
}

// NewController wires a controller around the real ffmpeg adapter.
func NewController(ffmpegBin string) *Controller {
	return &Controller{
		ffmpegBin: ffmpegBin,
		factory: func(opts audio.CaptureOptions, onProgress func(float64)) CaptureProcess {
			c := audio.NewCapture(opts, nil)
			c.OnProgress = onProgress
			return c
		},
		concat:         audio.ConcatSegments,
		now:            time.Now,
		healthInterval: defaultHealthInterval,
	}
}

// Active returns the current session, or nil when none is running.
func (c *Controller) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && !c.active.Ended() {
		return c.active
	}
	return nil
}

// Start validates devices against the capture mode, opens the first segment,
// and begins the periodic liveness probe. It fails fast when a session is
// already active.
func (c *Controller) Start(ctx context.Context, mode audio.Mode, devices audio.Devices, dir string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && !c.active.Ended() {
		return nil, ErrSessionActive
	}
	if err := validateDevices(mode, devices); err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		Devices:   devices,
		Dir:       dir,
		StartedAt: c.now(),
		state:     StateRecording,
		events:    make(chan Event, 64),
		ctrl:      c,
		healthDone: make(chan struct{}),
	}

	s.mu.Lock()
	err := s.startSegment(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("starting capture: %w", err)
	}

	c.active = s
	go s.healthLoop(c.healthInterval)
	s.emit(Event{Type: EventStarted})
	return s, nil
}

func validateDevices(mode audio.Mode, devices audio.Devices) error {
	switch mode {
	case audio.ModeMic:
		if devices.Mic == "" {
			return fmt.Errorf("%w: microphone id required for mode %q", ErrDeviceMissing, mode)
		}
	case audio.ModeSystem:
		if devices.Loopback == "" {
			return fmt.Errorf("%w: loopback id required for mode %q", ErrDeviceMissing, mode)
		}
	case audio.ModeBoth:
		if devices.Mic == "" || devices.Loopback == "" {
			return fmt.Errorf("%w: microphone and loopback ids required for mode %q", ErrDeviceMissing, mode)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrDeviceMissing, mode)
	}
	return nil
}

// StopResult is what Stop hands back to the caller.
type StopResult struct {
	Duration   time.Duration // recorded time, gaps excluded
	Gaps       []Gap
	Segments   []Segment
	OutputPath string
	// MergeError is set when segment concatenation failed. The stop itself
	// still succeeds; the per-segment files are left on disk as a fallback.
	MergeError bool
	Crashed    bool
}

// Session is the owned handle for one recording. All methods are safe for
// concurrent use; the capture process and the health ticker belong
// exclusively to the session.
type Session struct {
	ID        string
	Mode      audio.Mode
	Devices   audio.Devices
	Dir       string
	StartedAt time.Time

	ctrl *Controller

	// emitMu orders sends against the close in Stop; events is never
	// written to outside emit/closeEvents.
	emitMu       sync.Mutex
	events       chan Event
	eventsClosed bool

	mu              sync.Mutex
	state           State
	segments        []Segment
	gaps            []Gap
	capture         CaptureProcess
	recordedBase    float64 // seconds recorded by finished segments
	segmentProgress float64 // seconds reported by the active segment
	lastAlive       time.Time

	healthDone chan struct{}
	healthOnce sync.Once
}

// Events returns the session's ordered event stream. The channel is closed
// once the session has fully stopped.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Ended() bool {
	return s.State() == StateStopped
}

// Segments returns the per-pause segment files in order.
func (s *Session) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Gaps returns the recorded capture gaps in order.
func (s *Session) Gaps() []Gap {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Gap, len(s.gaps))
	copy(out, s.gaps)
	return out
}

// startSegment allocates the next segment file and spawns its capture.
// Caller holds s.mu.
func (s *Session) startSegment(ctx context.Context) error {
	index := len(s.segments)
	path := filepath.Join(s.Dir, fmt.Sprintf("segment_%03d.wav", index))

	capture := s.ctrl.factory(audio.CaptureOptions{
		Mode:       s.Mode,
		Devices:    s.Devices,
		OutputPath: path,
		FFmpegBin:  s.ctrl.ffmpegBin,
	}, s.onProgress)

	if err := capture.Start(ctx); err != nil {
		return err
	}

	now := s.ctrl.now()
	s.segments = append(s.segments, Segment{Path: path, Index: index, StartedAt: now})
	s.capture = capture
	s.segmentProgress = 0
	s.lastAlive = now
	return nil
}

func (s *Session) onProgress(seconds float64) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.segmentProgress = seconds
	s.lastAlive = s.ctrl.now()
	total := s.recordedBase + seconds
	s.mu.Unlock()

	s.emit(Event{Type: EventProgress, Seconds: total})
}

// Pause gracefully stops the active capture and opens a gap.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return fmt.Errorf("pause: %w (state %s)", ErrInvalidState, s.state)
	}

	if _, err := s.capture.Stop(); err != nil {
		return fmt.Errorf("stopping capture: %w", err)
	}
	s.recordedBase += s.segmentProgress
	s.segmentProgress = 0

	s.gaps = append(s.gaps, Gap{Start: s.ctrl.now()})
	s.state = StatePaused
	s.emit(Event{Type: EventPaused})
	return nil
}

// Resume closes the open gap and starts a new segment.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return fmt.Errorf("resume: %w (state %s)", ErrInvalidState, s.state)
	}

	now := s.ctrl.now()
	gap := s.closeOpenGap(now)

	if err := s.startSegment(ctx); err != nil {
		return fmt.Errorf("restarting capture: %w", err)
	}
	s.state = StateRecording

	s.emit(Event{Type: EventGap, Gap: gap})
	s.emit(Event{Type: EventResumed})
	return nil
}

// closeOpenGap fills the trailing gap's end and duration. Caller holds s.mu.
func (s *Session) closeOpenGap(now time.Time) *Gap {
	g := &s.gaps[len(s.gaps)-1]
	end := now
	g.End = &end
	g.Duration = now.Sub(g.Start)
	return g
}

// Stop ends the session. With more than one segment it concatenates them
// into the first segment's path; a concatenation failure is reported via
// StopResult.MergeError but does not fail the stop.
func (s *Session) Stop(ctx context.Context) (*StopResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateStopping, StateStopped:
		return nil, fmt.Errorf("stop: %w (state %s)", ErrInvalidState, s.state)
	}

	wasPaused := s.state == StatePaused
	wasCrashed := s.state == StateCrashed
	s.state = StateStopping

	now := s.ctrl.now()
	if wasPaused {
		gap := s.closeOpenGap(now)
		s.emit(Event{Type: EventGap, Gap: gap})
	} else if wasCrashed {
		// The clock kept running after the crash; the idle tail up to this
		// stop is gap time, not recorded audio.
		s.closeOpenGap(now)
	} else {
		if _, err := s.capture.Stop(); err != nil {
			s.capture.Kill()
		}
		s.recordedBase += s.segmentProgress
		s.segmentProgress = 0
	}

	s.stopHealthLoop()

	mergeErr := false
	if len(s.segments) > 1 {
		paths := make([]string, len(s.segments))
		for i, seg := range s.segments {
			paths[i] = seg.Path
		}
		if err := s.ctrl.concat(ctx, s.ctrl.ffmpegBin, paths); err != nil {
			mergeErr = true
		}
	}

	s.state = StateStopped

	var gapTotal time.Duration
	for _, g := range s.gaps {
		gapTotal += g.Duration
	}

	result := &StopResult{
		Duration:   now.Sub(s.StartedAt) - gapTotal,
		Gaps:       append([]Gap(nil), s.gaps...),
		Segments:   append([]Segment(nil), s.segments...),
		OutputPath: s.segments[0].Path,
		MergeError: mergeErr,
		Crashed:    wasCrashed,
	}

	s.emit(Event{
		Type:     EventStopped,
		Duration: result.Duration,
		Gaps:     result.Gaps,
		Segments: result.Segments,
	})
	s.closeEvents()
	return result, nil
}

func (s *Session) stopHealthLoop() {
	s.healthOnce.Do(func() { close(s.healthDone) })
}

func (s *Session) healthLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.healthDone:
			return
		case <-ticker.C:
			s.checkHealth()
		}
	}
}

// checkHealth is the periodic liveness probe. A dead capture while recording
// means a crash: the unrecorded window becomes a gap, the adapter is
// force-stopped, and a fatal error is surfaced. The session stays queryable
// but recording has ended.
func (s *Session) checkHealth() {
	s.mu.Lock()

	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	if s.capture.Alive() {
		s.lastAlive = s.ctrl.now()
		s.mu.Unlock()
		return
	}

	now := s.ctrl.now()
	end := now
	gap := Gap{Start: s.lastAlive, End: &end, Duration: now.Sub(s.lastAlive)}
	s.gaps = append(s.gaps, gap)

	s.capture.Kill()
	s.recordedBase += s.segmentProgress
	s.segmentProgress = 0
	s.state = StateCrashed
	s.stopHealthLoop()
	s.mu.Unlock()

	s.emit(Event{Type: EventGap, Gap: &gap})
	s.emit(Event{Type: EventError, Reason: "capture process exited unexpectedly"})
}
