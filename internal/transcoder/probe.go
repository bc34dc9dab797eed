package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo contains probed information about a source file.
type MediaInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Codec    string  `json:"codec"`
	BitRate  int64   `json:"bitRate"`
}

// Output bitrate the default ffmpeg settings tend to land around, used
// when the source carries no bitrate of its own.
const fallbackBitRate = 4_000_000 // bits per second

// Probe runs ffprobe against filePath and extracts duration, codec,
// dimensions and overall bitrate.
func Probe(ctx context.Context, filePath string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	output := stdout.String()
	info := &MediaInfo{}

	if v, ok := extractField(output, `"duration"`); ok {
		info.Duration, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := extractField(output, `"codec_name"`); ok {
		info.Codec = v
	}
	if v, ok := extractField(output, `"width"`); ok {
		info.Width, _ = strconv.Atoi(v)
	}
	if v, ok := extractField(output, `"height"`); ok {
		info.Height, _ = strconv.Atoi(v)
	}
	if v, ok := extractField(output, `"bit_rate"`); ok {
		info.BitRate, _ = strconv.ParseInt(v, 10, 64)
	}

	return info, nil
}

// extractField pulls the first value following key out of ffprobe's
// JSON output. Good enough for the handful of flat fields we read;
// avoids dragging a full JSON model of ffprobe's output around.
func extractField(output, key string) (string, bool) {
	idx := strings.Index(output, key)
	if idx == -1 {
		return "", false
	}

	start := strings.Index(output[idx:], ":")
	if start == -1 {
		return "", false
	}
	start += idx + 1

	end := strings.IndexAny(output[start:], ",}")
	if end == -1 {
		return "", false
	}

	return strings.Trim(output[start:start+end], ` "`+"\n\t"), true
}

// EstimateSize approximates the transcoded output size from the source
// duration and bitrate. It is only an estimate for length reporting;
// the real size is unknown until ffmpeg finishes.
func (info *MediaInfo) EstimateSize() int64 {
	if info.Duration <= 0 {
		return 0
	}

	bitRate := info.BitRate
	if bitRate <= 0 {
		bitRate = fallbackBitRate
	}

	return int64(info.Duration * float64(bitRate) / 8)
}
