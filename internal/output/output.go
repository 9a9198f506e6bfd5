package output

import (
	"fmt"
	"io"
	"time"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) RecordingStarted(dir string, mode string) {
	fmt.Fprintf(f.w, "🎙️  Recording (%s) → %s\n", mode, dir)
	fmt.Fprintf(f.w, "   p = pause, r = resume, q = stop\n")
}

func (f *Formatter) RecordingProgress(seconds float64) {
	fmt.Fprintf(f.w, "\r⏺  %s recorded", formatDuration(time.Duration(seconds*float64(time.Second))))
}

func (f *Formatter) RecordingPaused() {
	fmt.Fprintf(f.w, "\n⏸️  Recording paused\n")
}

func (f *Formatter) RecordingResumed() {
	fmt.Fprintf(f.w, "▶️  Recording resumed\n")
}

func (f *Formatter) RecordingGap(start time.Time, duration time.Duration) {
	fmt.Fprintf(f.w, "ℹ️  Gap recorded at %s (%s)\n", start.Local().Format("15:04:05"), formatDuration(duration))
}

func (f *Formatter) RecordingStopped(duration time.Duration, segments, gaps int) {
	fmt.Fprintf(f.w, "\n⏹️  Recording stopped (%s, %d segment(s), %d gap(s))\n",
		formatDuration(duration), segments, gaps)
}

func (f *Formatter) SplitComplete(chunks int) {
	fmt.Fprintf(f.w, "🔪 Split into %d chunk(s)\n", chunks)
}

func (f *Formatter) ChunkStart(index, total int) {
	fmt.Fprintf(f.w, "📝 Transcribing chunk %d/%d...\n", index+1, total)
}

func (f *Formatter) ChunkComplete(index, total int) {
	fmt.Fprintf(f.w, "✅ Chunk %d/%d done\n", index+1, total)
}

func (f *Formatter) ChunkError(index int, reason string) {
	fmt.Fprintf(f.w, "⚠️  Chunk %d failed: %s\n", index+1, reason)
}

func (f *Formatter) TranscribeDone(path string, elapsed time.Duration) {
	fmt.Fprintf(f.w, "✅ Transcript saved: %s (%s)\n", path, formatDuration(elapsed))
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SessionListHeader() {
	fmt.Fprintf(f.w, "📁 Sessions:\n\n")
}

func (f *Formatter) SessionListItem(startedAt time.Time, mode string, duration time.Duration, transcribed, crashed bool) {
	status := ""
	if transcribed {
		status = " 📝"
	}
	if crashed {
		status += " 💥"
	}
	fmt.Fprintf(f.w, "  %s  %-6s %8s%s\n",
		startedAt.Local().Format("2006-01-02 15:04"), mode, formatDuration(duration), status)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
