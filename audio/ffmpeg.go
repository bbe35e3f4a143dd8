package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder runs ffmpeg to decode any supported container to mono
// float32 PCM at SampleRate.
type FFmpegDecoder struct {
	// Binary is the ffmpeg executable (default "ffmpeg").
	Binary string
	// SampleRate is the decode rate (default DefaultDecodeRate).
	SampleRate int
}

// Decode decodes path. ffmpeg's stderr is included in the error.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (Waveform, error) {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	rate := d.SampleRate
	if rate <= 0 {
		rate = DefaultDecodeRate
	}
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Waveform{}, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, msg)
		}
		return Waveform{}, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	samples, err := parseF32LE(stdout.Bytes())
	if err != nil {
		return Waveform{}, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	return Waveform{Samples: samples, SampleRate: rate}, nil
}

func parseF32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("unexpected byte length %d", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
