//go:build !gocv
// +build !gocv

package annotate

import (
	"context"
	"errors"

	"github.com/tamzrod/plc-inspector/internal/vision"
)

var errNoGoCV = errors.New("annotate: gocv build tag is not enabled")

// Renderer is a stub when the binary is built without OpenCV.
type Renderer struct {
	Quality int
}

func NewRenderer() *Renderer {
	return &Renderer{Quality: 90}
}

func (r *Renderer) Render(vision.Frame, []vision.Detection, string) ([]byte, error) {
	return nil, errNoGoCV
}

// CameraSource is a stub when the binary is built without OpenCV.
type CameraSource struct{}

func OpenCamera(string) (*CameraSource, error) {
	return nil, errNoGoCV
}

func (s *CameraSource) Next(context.Context) (vision.Frame, error) {
	return vision.Frame{}, errNoGoCV
}

func (s *CameraSource) Close() error { return nil }
