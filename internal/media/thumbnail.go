package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Derivatives generates thumbnail/waveform files via ffmpeg and
// audiowaveform subprocesses.
type Derivatives struct{}

// VideoThumbnail extracts a single frame scaled to thumbnailSize width. A
// negative atMillis skips the seek (used for the image first-frame case).
func (Derivatives) VideoThumbnail(ctx context.Context, srcPath, dstPath string, atMillis int) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "warning"}
	if atMillis >= 0 {
		args = append(args, "-ss", fmt.Sprintf("%dms", atMillis))
	}
	args = append(args, "-i", srcPath, "-vf", fmt.Sprintf("scale=%d:-1", thumbnailSize), "-vframes", "1", dstPath)

	if err := runQuiet(ctx, "ffmpeg", args...); err != nil {
		return err
	}
	return requireExists(dstPath)
}

// AudioThumbnail renders a waveform-image thumbnail for an audio file.
func (Derivatives) AudioThumbnail(ctx context.Context, srcPath, dstPath string, durationSeconds float64) error {
	err := runQuiet(ctx, "audiowaveform",
		"-i", srcPath, "-o", dstPath,
		"-e", fmt.Sprintf("%f", durationSeconds),
		"-w", fmt.Sprintf("%d", thumbnailSize),
		"-h", fmt.Sprintf("%d", thumbnailSize),
		"--no-axis-labels", "--amplitude-scale", "0.9")
	if err != nil {
		return err
	}
	return requireExists(dstPath)
}

// AudioWaveform renders the 8-bit waveform data file.
func (Derivatives) AudioWaveform(ctx context.Context, srcPath, dstPath string) error {
	if err := runQuiet(ctx, "audiowaveform", "-i", srcPath, "-o", dstPath, "-b", "8"); err != nil {
		return err
	}
	return requireExists(dstPath)
}

func runQuiet(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

func requireExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected output file %s was not produced", path)
	}
	return nil
}
