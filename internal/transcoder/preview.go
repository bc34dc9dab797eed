package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"

	"github.com/disintegration/imaging"
)

// ErrNoOutput indicates a job has not produced any bytes to preview yet.
var ErrNoOutput = errors.New("no transcoded output yet")

// maxPreviewWidth caps preview frames regardless of what was requested.
const maxPreviewWidth = 1280

// Preview extracts a single frame from a job's in-progress output,
// scales it to width and writes it as JPEG. The output file is readable
// from the front even while ffmpeg appends, which is what makes a
// preview of a half-finished transcode possible at all.
func (t *Transcoder) Preview(ctx context.Context, id string, width int, w io.Writer) error {
	job, err := t.Get(id)
	if err != nil {
		return err
	}
	if job.BytesTranscoded() == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNoOutput)
	}

	if width <= 0 || width > maxPreviewWidth {
		width = maxPreviewWidth
	}

	frame, err := extractFrame(ctx, job.OutputPath)
	if err != nil {
		return err
	}

	resized := imaging.Resize(frame, width, 0, imaging.Lanczos)
	if err := imaging.Encode(w, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// extractFrame asks ffmpeg for the most recent decodable frame of a
// possibly still-growing file.
func extractFrame(ctx context.Context, path string) (image.Image, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("extract frame: %w - %s", err, stderr.String())
	}

	img, err := imaging.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
