//go:build gocv
// +build gocv

package annotate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"gocv.io/x/gocv"

	"github.com/tamzrod/plc-inspector/internal/vision"
)

// Renderer draws detection boxes and an outcome banner onto a frame and
// returns it re-encoded as JPEG.
type Renderer struct {
	Quality int
}

func NewRenderer() *Renderer {
	return &Renderer{Quality: 90}
}

// Render decodes the frame, overlays one rectangle per detection with its
// class label, writes the banner into the top-left corner and encodes the
// result.
func (r *Renderer) Render(frame vision.Frame, dets []vision.Detection, banner string) ([]byte, error) {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("annotate: decode frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("annotate: empty frame")
	}

	green := color.RGBA{G: 255, A: 255}
	for _, d := range dets {
		rect := image.Rect(int(d.Box.X1), int(d.Box.Y1), int(d.Box.X2), int(d.Box.Y2))
		gocv.Rectangle(&mat, rect, green, 2)
		label := fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
		gocv.PutText(&mat, label, image.Pt(rect.Min.X, rect.Min.Y-4),
			gocv.FontHersheySimplex, 0.5, green, 1)
	}
	if banner != "" {
		white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		gocv.PutText(&mat, banner, image.Pt(10, 30),
			gocv.FontHersheySimplex, 0.8, white, 2)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("annotate: convert frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("annotate: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// CameraSource captures frames from a local video device and hands them out
// as JPEG-encoded frames.
type CameraSource struct {
	cap *gocv.VideoCapture
}

// OpenCamera accepts a device index ("0"), a device path or a stream URL.
func OpenCamera(device string) (*CameraSource, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("annotate: open camera %s: %w", device, err)
	}
	return &CameraSource{cap: cap}, nil
}

func (s *CameraSource) Next(ctx context.Context) (vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, err
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := s.cap.Read(&mat); !ok || mat.Empty() {
		return vision.Frame{}, errors.New("annotate: camera read failed")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return vision.Frame{}, fmt.Errorf("annotate: encode capture: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return vision.Frame{Data: data, Width: mat.Cols(), Height: mat.Rows()}, nil
}

func (s *CameraSource) Close() error {
	return s.cap.Close()
}
