// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sync/atomic"

	"github.com/user/dualcam/pkg/ports"
)

// Sink saves debug output under a base directory:
//
//	config.json
//	metrics/metrics-0001.json ...
//	frames/frame-000001.png ...
type Sink struct {
	baseDir    string
	fs         ports.FileSystem
	frameEvery uint64
	snapshots  atomic.Uint64
}

// New creates a new file sink. Only every frameEvery-th composed frame is
// written; values below 1 write every frame.
func New(baseDir string, fs ports.FileSystem, frameEvery int) *Sink {
	if frameEvery < 1 {
		frameEvery = 1
	}
	return &Sink{
		baseDir:    baseDir,
		fs:         fs,
		frameEvery: uint64(frameEvery),
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveConfigJSON saves the session configuration.
func (s *Sink) SaveConfigJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "config.json"), data)
}

// SaveMetricsJSON saves one metrics snapshot to its own numbered file.
func (s *Sink) SaveMetricsJSON(data []byte) error {
	n := s.snapshots.Add(1)
	path := filepath.Join(s.baseDir, "metrics", fmt.Sprintf("metrics-%04d.json", n))
	return s.fs.WriteFile(path, data)
}

// SaveComposedFrame saves a composed frame as PNG.
func (s *Sink) SaveComposedFrame(seq uint64, img image.Image) error {
	if seq%s.frameEvery != 0 {
		return nil
	}
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode composed frame: %w", err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%06d.png", seq)), buf.Bytes())
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
