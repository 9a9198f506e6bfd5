package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	defaultChunkSeconds = 60
	defaultConcurrency  = 5

	// Pause between remote batches so a burst of chunks does not trip the
	// API's rate limiter.
	batchDelay = 100 * time.Millisecond
)

// ErrJobInProgress is returned when ProcessAudio is called while another job
// holds the single global job slot.
var ErrJobInProgress = errors.New("a transcription job is already in progress")

// JobEventType tags entries on a job's event stream.
type JobEventType string

const (
	JobSplitComplete JobEventType = "split-complete"
	JobChunkStart    JobEventType = "chunk-start"
	JobChunkComplete JobEventType = "chunk-complete"
	JobChunkError    JobEventType = "chunk-error"
	JobComplete      JobEventType = "complete"
	JobError         JobEventType = "error"
)

// JobEvent reports transcription progress to the surrounding application.
type JobEvent struct {
	Type    JobEventType
	Index   int
	Total   int
	Reason  string
	Elapsed time.Duration
}

// Result is the outcome of one transcription job.
type Result struct {
	Transcript   MergedTranscript
	ChunkCount   int
	FailedChunks []int
	Elapsed      time.Duration
}

// Orchestrator splits a recording into fixed-duration chunks, dispatches
// them to a worker strategy, and merges the partial results. At most one job
// runs at a time.
type Orchestrator struct {
	FFmpegBin    string
	ChunkSeconds int
	Concurrency  int
	TempDir      string

	// Local is the sequential fallback engine; Remote, when it has at least
	// one key, is preferred.
	Local  Worker
	Remote PoolWorker

	// OnEvent, when set, receives progress events for the running job.
	OnEvent func(JobEvent)

	// split is swapped out in tests.
	split func(ctx context.Context, audioPath, dir string) ([]string, error)

	mu      sync.Mutex
	running bool
	emitMu  sync.Mutex
}

func NewOrchestrator(ffmpegBin string, local Worker, remote PoolWorker) *Orchestrator {
	o := &Orchestrator{
		FFmpegBin:    ffmpegBin,
		ChunkSeconds: defaultChunkSeconds,
		Concurrency:  defaultConcurrency,
		Local:        local,
		Remote:       remote,
	}
	o.split = o.splitAudio
	return o
}

// emit serialises event delivery so concurrent batch workers still produce
// one ordered stream.
func (o *Orchestrator) emit(ev JobEvent) {
	if o.OnEvent == nil {
		return
	}
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	o.OnEvent(ev)
}

// ProcessAudio runs the full pipeline for one recording. Chunk failures are
// absorbed: the job completes with whatever was transcribed, down to an
// empty transcript when every chunk failed.
func (o *Orchestrator) ProcessAudio(ctx context.Context, audioPath string) (*Result, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrJobInProgress
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	start := time.Now()

	dir, err := os.MkdirTemp(o.TempDir, "chunks-*")
	if err != nil {
		return nil, fmt.Errorf("creating chunk directory: %w", err)
	}
	defer os.RemoveAll(dir)

	chunks, err := o.split(ctx, audioPath, dir)
	if err != nil {
		o.emit(JobEvent{Type: JobError, Reason: err.Error()})
		return nil, fmt.Errorf("splitting audio: %w", err)
	}
	o.emit(JobEvent{Type: JobSplitComplete, Total: len(chunks)})

	results := make([]*ChunkTranscript, len(chunks))
	attempted := make([]bool, len(chunks))
	var failed []int
	var failedMu sync.Mutex

	recordFailure := func(i int, err error) {
		failedMu.Lock()
		failed = append(failed, i)
		failedMu.Unlock()
		o.emit(JobEvent{Type: JobChunkError, Index: i, Total: len(chunks), Reason: err.Error()})
	}

	if o.Remote != nil && o.Remote.Keys() > 0 {
		if err := o.runParallel(ctx, chunks, results, attempted, recordFailure); err != nil {
			// One-time downgrade: the rest of the job runs on the local
			// engine. Chunks already attempted keep their outcome.
			o.runSequential(ctx, chunks, results, attempted, recordFailure)
		}
	} else {
		o.runSequential(ctx, chunks, results, attempted, recordFailure)
	}

	// Shift each successful chunk into session-global time; failed indices
	// simply contribute nothing.
	chunkSeconds := o.chunkDuration()
	var merged []ChunkTranscript
	for i, ct := range results {
		if ct == nil {
			continue
		}
		shifted := ShiftChunk(NormalizeChunk(*ct), float64(i*chunkSeconds))
		merged = append(merged, shifted)
	}

	sort.Ints(failed)
	res := &Result{
		Transcript:   Merge(merged, len(chunks)),
		ChunkCount:   len(chunks),
		FailedChunks: failed,
		Elapsed:      time.Since(start),
	}
	o.emit(JobEvent{Type: JobComplete, Total: len(chunks), Elapsed: res.Elapsed})
	return res, nil
}

// runSequential processes remaining chunks strictly in index order on the
// local engine, deleting each chunk file right after its attempt so
// temporary storage stays bounded.
func (o *Orchestrator) runSequential(ctx context.Context, chunks []string, results []*ChunkTranscript, attempted []bool, recordFailure func(int, error)) {
	for i, path := range chunks {
		if attempted[i] {
			continue
		}
		attempted[i] = true
		o.emit(JobEvent{Type: JobChunkStart, Index: i, Total: len(chunks)})

		ct, err := o.Local.Transcribe(ctx, path)
		os.Remove(path)
		if err != nil {
			recordFailure(i, err)
			continue
		}
		results[i] = &ct
		o.emit(JobEvent{Type: JobChunkComplete, Index: i, Total: len(chunks)})
	}
}

// runParallel processes chunks in fixed-size batches against the remote
// pool. Batches are issued in index order; within a batch chunks run
// concurrently, and one chunk's failure never aborts its siblings. A
// returned error means the strategy itself is unusable and the caller should
// downgrade.
func (o *Orchestrator) runParallel(ctx context.Context, chunks []string, results []*ChunkTranscript, attempted []bool, recordFailure func(int, error)) error {
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var unusable error
	var unusableMu sync.Mutex

	for batchStart := 0; batchStart < len(chunks); batchStart += concurrency {
		unusableMu.Lock()
		err := unusable
		unusableMu.Unlock()
		if err != nil {
			return err
		}

		end := batchStart + concurrency
		if end > len(chunks) {
			end = len(chunks)
		}

		var wg sync.WaitGroup
		for i := batchStart; i < end; i++ {
			attempted[i] = true
			wg.Add(1)
			go func(i int, path string) {
				defer wg.Done()
				o.emit(JobEvent{Type: JobChunkStart, Index: i, Total: len(chunks)})

				ct, err := o.Remote.Transcribe(ctx, path)
				os.Remove(path)
				if err != nil {
					if errors.Is(err, ErrNoKeys) {
						unusableMu.Lock()
						unusable = err
						unusableMu.Unlock()
					}
					recordFailure(i, err)
					return
				}
				results[i] = &ct
				o.emit(JobEvent{Type: JobChunkComplete, Index: i, Total: len(chunks)})
			}(i, chunks[i])
		}
		wg.Wait()

		if end < len(chunks) {
			time.Sleep(batchDelay)
		}
	}

	unusableMu.Lock()
	defer unusableMu.Unlock()
	return unusable
}

// chunkDuration is the effective chunk length in seconds. The same value
// must drive both the ffmpeg split and the per-chunk timestamp shift.
func (o *Orchestrator) chunkDuration() int {
	if o.ChunkSeconds > 0 {
		return o.ChunkSeconds
	}
	return defaultChunkSeconds
}

// splitAudio slices the recording into fixed-duration chunks without
// re-encoding, each chunk's timestamps reset to zero.
func (o *Orchestrator) splitAudio(ctx context.Context, audioPath, dir string) ([]string, error) {
	ffmpeg := o.FFmpegBin
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	seconds := o.chunkDuration()

	pattern := filepath.Join(dir, "chunk_%04d"+filepath.Ext(audioPath))
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-i", audioPath,
		"-vn",
		"-c", "copy",
		"-f", "segment",
		"-segment_time", strconv.Itoa(seconds),
		"-reset_timestamps", "1",
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg segment split: %w\n%s", err, string(out))
	}

	files, err := filepath.Glob(filepath.Join(dir, "chunk_*"+filepath.Ext(audioPath)))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("split produced no chunks")
	}
	sort.Strings(files)
	return files, nil
}
