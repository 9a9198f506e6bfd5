package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ConcatSegments losslessly joins the ordered segment files into the first
// segment's path using ffmpeg's concat demuxer (no re-encoding). On success
// every segment but the first is deleted. On failure nothing is deleted, so
// the individual segments remain usable.
func ConcatSegments(ctx context.Context, ffmpegBin string, paths []string) error {
	if len(paths) < 2 {
		return nil
	}
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}

	manifest, err := writeConcatManifest(paths)
	if err != nil {
		return err
	}
	defer os.Remove(manifest)

	merged := filepath.Join(filepath.Dir(paths[0]), ".merged"+filepath.Ext(paths[0]))
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		merged,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(merged)
		return fmt.Errorf("concatenating segments: %w\n%s", err, string(out))
	}

	if err := os.Rename(merged, paths[0]); err != nil {
		os.Remove(merged)
		return fmt.Errorf("replacing first segment: %w", err)
	}

	for _, p := range paths[1:] {
		os.Remove(p)
	}
	return nil
}

// writeConcatManifest produces the demuxer's file list, one entry per line in
// playback order.
func writeConcatManifest(paths []string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(paths[0]), "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("creating concat manifest: %w", err)
	}

	var sb strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		// The demuxer's quoting rule: single quotes close, escape, reopen.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&sb, "file '%s'\n", escaped)
	}

	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing concat manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
