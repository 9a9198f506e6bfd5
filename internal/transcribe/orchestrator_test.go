package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeSplit writes n placeholder chunk files into dir and returns them.
func fakeSplit(n int) func(ctx context.Context, audioPath, dir string) ([]string, error) {
	return func(ctx context.Context, audioPath, dir string) ([]string, error) {
		var paths []string
		for i := 0; i < n; i++ {
			p := filepath.Join(dir, fmt.Sprintf("chunk_%04d.wav", i))
			if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}
		return paths, nil
	}
}

// scriptedWorker answers per chunk index, inferred from the file name.
type scriptedWorker struct {
	mu      sync.Mutex
	results map[int]ChunkTranscript
	fail    map[int]bool
	order   []int
	active  int
	maxSeen int
}

func (w *scriptedWorker) Transcribe(ctx context.Context, path string) (ChunkTranscript, error) {
	var idx int
	fmt.Sscanf(filepath.Base(path), "chunk_%04d.wav", &idx)

	w.mu.Lock()
	w.order = append(w.order, idx)
	w.active++
	if w.active > w.maxSeen {
		w.maxSeen = w.active
	}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.active--
		w.mu.Unlock()
	}()

	if w.fail[idx] {
		return ChunkTranscript{}, errors.New("engine choked")
	}
	if ct, ok := w.results[idx]; ok {
		return ct, nil
	}
	return ChunkTranscript{Text: fmt.Sprintf("chunk %d", idx)}, nil
}

type scriptedPool struct {
	scriptedWorker
	keys int
	err  error
}

func (p *scriptedPool) Keys() int { return p.keys }

func (p *scriptedPool) Transcribe(ctx context.Context, path string) (ChunkTranscript, error) {
	if p.err != nil {
		return ChunkTranscript{}, p.err
	}
	return p.scriptedWorker.Transcribe(ctx, path)
}

func TestSequentialPipeline(t *testing.T) {
	local := &scriptedWorker{
		results: map[int]ChunkTranscript{
			0: {Text: "Hello", Language: "en", Segments: []Segment{{0, 2, "Hello"}}},
			1: {Text: "World", Segments: []Segment{{0, 2, "World"}}},
		},
		fail: map[int]bool{2: true},
	}

	o := NewOrchestrator("ffmpeg", local, nil)
	o.split = fakeSplit(3)

	var events []JobEvent
	o.OnEvent = func(ev JobEvent) { events = append(events, ev) }

	res, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav")
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	tr := res.Transcript
	if tr.Text != "Hello World" {
		t.Errorf("text = %q, want %q", tr.Text, "Hello World")
	}
	want := []Segment{{0, 2, "Hello"}, {60, 62, "World"}}
	if len(tr.Segments) != 2 || tr.Segments[0] != want[0] || tr.Segments[1] != want[1] {
		t.Errorf("segments = %+v, want %+v", tr.Segments, want)
	}
	if tr.ChunksAttempted != 3 || tr.SegmentsRetained != 2 {
		t.Errorf("counts = %d/%d, want 3/2", tr.ChunksAttempted, tr.SegmentsRetained)
	}
	if len(res.FailedChunks) != 1 || res.FailedChunks[0] != 2 {
		t.Errorf("failed chunks = %v, want [2]", res.FailedChunks)
	}

	// Strict index order on the sequential path.
	for i, idx := range local.order {
		if idx != i {
			t.Errorf("chunk order = %v", local.order)
			break
		}
	}

	if events[0].Type != JobSplitComplete || events[0].Total != 3 {
		t.Errorf("first event = %+v", events[0])
	}
	if last := events[len(events)-1]; last.Type != JobComplete {
		t.Errorf("last event = %+v", last)
	}
	var chunkErrors int
	for _, ev := range events {
		if ev.Type == JobChunkError {
			chunkErrors++
			if ev.Index != 2 {
				t.Errorf("chunk-error for index %d", ev.Index)
			}
		}
	}
	if chunkErrors != 1 {
		t.Errorf("got %d chunk-error events, want 1", chunkErrors)
	}
}

func TestZeroChunkSecondsStillShiftsByDefault(t *testing.T) {
	local := &scriptedWorker{
		results: map[int]ChunkTranscript{
			0: {Text: "Hello", Segments: []Segment{{0, 2, "Hello"}}},
			1: {Text: "World", Segments: []Segment{{0, 2, "World"}}},
		},
	}

	o := NewOrchestrator("ffmpeg", local, nil)
	o.ChunkSeconds = 0 // unset: split and shift must agree on the default
	o.split = fakeSplit(2)

	res, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav")
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	want := []Segment{{0, 2, "Hello"}, {60, 62, "World"}}
	got := res.Transcript.Segments
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestChunkFilesDeletedAfterAttempt(t *testing.T) {
	local := &scriptedWorker{fail: map[int]bool{1: true}}

	var chunkDir string
	o := NewOrchestrator("ffmpeg", local, nil)
	o.split = func(ctx context.Context, audioPath, dir string) ([]string, error) {
		chunkDir = dir
		return fakeSplit(3)(ctx, audioPath, dir)
	}

	if _, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav"); err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	// Every chunk file is removed after its attempt, success or failure.
	leftovers, _ := filepath.Glob(filepath.Join(chunkDir, "chunk_*"))
	if len(leftovers) != 0 {
		t.Errorf("chunk files left behind: %v", leftovers)
	}
}

func TestParallelPathBatches(t *testing.T) {
	pool := &scriptedPool{keys: 2}
	o := NewOrchestrator("ffmpeg", &scriptedWorker{}, pool)
	o.split = fakeSplit(5)
	o.Concurrency = 2

	res, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav")
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	if pool.maxSeen > 2 {
		t.Errorf("saw %d concurrent chunks, concurrency limit is 2", pool.maxSeen)
	}
	if len(pool.order) != 5 {
		t.Fatalf("pool handled %d chunks, want 5", len(pool.order))
	}
	// Batches are issued in index order: the third batch's chunk (4) must
	// come after the first batch's chunks (0, 1).
	pos := make(map[int]int)
	for i, idx := range pool.order {
		pos[idx] = i
	}
	if pos[4] < pos[0] || pos[4] < pos[1] {
		t.Errorf("batch order violated: %v", pool.order)
	}

	if res.Transcript.ChunksAttempted != 5 {
		t.Errorf("chunksAttempted = %d, want 5", res.Transcript.ChunksAttempted)
	}
}

func TestParallelChunkFailureDoesNotAbort(t *testing.T) {
	pool := &scriptedPool{keys: 1}
	pool.fail = map[int]bool{1: true, 3: true}
	pool.results = map[int]ChunkTranscript{}

	o := NewOrchestrator("ffmpeg", &scriptedWorker{}, pool)
	o.split = fakeSplit(5)
	o.Concurrency = 2

	res, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav")
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if len(res.FailedChunks) != 2 {
		t.Errorf("failed = %v, want 2 entries", res.FailedChunks)
	}
	if len(pool.order) != 5 {
		t.Errorf("pool handled %d chunks, want all 5", len(pool.order))
	}
}

func TestParallelDowngradesToLocal(t *testing.T) {
	pool := &scriptedPool{keys: 1, err: ErrNoKeys}
	local := &scriptedWorker{}

	o := NewOrchestrator("ffmpeg", local, pool)
	o.split = fakeSplit(6)
	o.Concurrency = 2

	res, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav")
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	// The first batch fails unrecoverably; the remainder of the job runs on
	// the local engine.
	if len(local.order) == 0 {
		t.Fatal("local engine never used after downgrade")
	}
	for _, idx := range local.order {
		if idx < 2 {
			t.Errorf("chunk %d re-attempted after remote attempt", idx)
		}
	}
	if res.ChunkCount != 6 {
		t.Errorf("chunk count = %d, want 6", res.ChunkCount)
	}
}

func TestAllChunksFailedYieldsEmptyTranscript(t *testing.T) {
	local := &scriptedWorker{fail: map[int]bool{0: true, 1: true}}
	o := NewOrchestrator("ffmpeg", local, nil)
	o.split = fakeSplit(2)

	res, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav")
	if err != nil {
		t.Fatalf("job must complete even with zero successes: %v", err)
	}

	tr := res.Transcript
	if tr.Text != "" || len(tr.Segments) != 0 {
		t.Errorf("transcript not empty: %+v", tr)
	}
	if tr.ChunksAttempted != 2 || tr.SegmentsRetained != 0 {
		t.Errorf("counts = %d/%d, want 2/0", tr.ChunksAttempted, tr.SegmentsRetained)
	}
}

func TestSingleJobSlot(t *testing.T) {
	o := NewOrchestrator("ffmpeg", &scriptedWorker{}, nil)
	o.running = true

	if _, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav"); !errors.Is(err, ErrJobInProgress) {
		t.Errorf("err = %v, want ErrJobInProgress", err)
	}
}

func TestSplitFailureIsFatal(t *testing.T) {
	o := NewOrchestrator("ffmpeg", &scriptedWorker{}, nil)
	o.split = func(ctx context.Context, audioPath, dir string) ([]string, error) {
		return nil, errors.New("corrupt container")
	}

	var sawError bool
	o.OnEvent = func(ev JobEvent) {
		if ev.Type == JobError {
			sawError = true
		}
	}

	if _, err := o.ProcessAudio(context.Background(), "/tmp/recording.wav"); err == nil {
		t.Fatal("expected split failure to fail the job")
	}
	if !sawError {
		t.Error("no error event emitted")
	}
}
