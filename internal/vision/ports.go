// internal/vision/ports.go
package vision

import "context"

// Frame is one raw image handed off by value between collaborators.
type Frame struct {
	Data   []byte // encoded image bytes, opaque to the core
	Width  int
	Height int
}

// Detector is the external detection-model collaborator. Detections carry
// no ordering guarantee; confidence floors are applied by the core.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// FrameSource supplies frames for one camera viewpoint. Ownership of the
// returned frame transfers to the caller.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Camera bundles one viewpoint's source and model.
type Camera struct {
	Source   FrameSource
	Detector Detector
}
