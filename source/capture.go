package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog/log"
)

// inputArgs picks the ffmpeg capture driver for goos.
func inputArgs(goos, device string) ([]string, error) {
	switch goos {
	case "linux":
		dev := device
		if dev == "" {
			dev = "/dev/video0"
		}
		return []string{"-f", "v4l2", "-i", dev}, nil
	case "darwin":
		dev := device
		if dev == "" {
			dev = "0"
		}
		return []string{"-f", "avfoundation", "-i", dev}, nil
	case "windows":
		dev := device
		if dev == "" {
			dev = "Integrated Webcam"
		}
		return []string{"-f", "dshow", "-i", "video=" + dev}, nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

// captureArgs builds an ffmpeg command line that grabs one frame, letterboxes
// it to w×h and writes it to stdout as packed RGB.
func captureArgs(goos, device string, w, h int) ([]string, error) {
	args, err := inputArgs(goos, device)
	if err != nil {
		return nil, err
	}
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
		w, h, w, h)
	return append(args,
		"-hide_banner", "-loglevel", "error",
		"-frames:v", "1",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-vf", vf, "-",
	), nil
}

// CaptureFrame takes a single snapshot from a camera with ffmpeg. device may be
// empty to use the platform default.
func CaptureFrame(ctx context.Context, device string, w, h int) (*image.RGBA, error) {
	args, err := captureArgs(runtime.GOOS, device, w, h)
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get FFmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}
	log.Debug().Str("device", device).Int("width", w).Int("height", h).Msg("ffmpeg snapshot started")

	img, readErr := readRGB24(stdout, w, h)
	_, _ = io.Copy(io.Discard, stdout)
	if err := cmd.Wait(); err != nil && readErr == nil {
		readErr = fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if readErr != nil {
		return nil, readErr
	}
	return img, nil
}

// readRGB24 reads one w×h frame of packed 8-bit RGB.
func readRGB24(r io.Reader, w, h int) (*image.RGBA, error) {
	raw := make([]byte, w*h*3)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, o := 0, 0; i < len(raw); i, o = i+3, o+4 {
		img.Pix[o] = raw[i]
		img.Pix[o+1] = raw[i+1]
		img.Pix[o+2] = raw[i+2]
		img.Pix[o+3] = 0xff
	}
	return img, nil
}
