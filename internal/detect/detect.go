//go:build gocv
// +build gocv

package detect

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/tamzrod/plc-inspector/internal/vision"
)

// Config describes one detection network. ClassNames maps the network's
// class index to the class names the interpreters match against.
type Config struct {
	ModelPath      string
	ClassNames     []string
	InputSize      int
	ScoreThreshold float32
	NMSThreshold   float32
}

// Net is a single-output object detector (YOLO-family ONNX export) running
// on the OpenCV DNN backend.
type Net struct {
	net gocv.Net
	cfg Config
}

func Open(cfg Config) (*Net, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("detect: model path required")
	}
	if len(cfg.ClassNames) == 0 {
		return nil, errors.New("detect: class names required")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.25
	}
	if cfg.NMSThreshold <= 0 {
		cfg.NMSThreshold = 0.45
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("detect: load network %s failed", cfg.ModelPath)
	}
	return &Net{net: net, cfg: cfg}, nil
}

func (n *Net) Close() error {
	return n.net.Close()
}

// Detect runs one forward pass and returns detections in frame pixel
// coordinates, non-maximum suppressed.
func (n *Net) Detect(ctx context.Context, frame vision.Frame) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("detect: decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, errors.New("detect: empty frame")
	}

	size := n.cfg.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	return n.parse(out, img.Cols(), img.Rows())
}

// parse reads the [1 x rows x (5+classes)] output layout: box center,
// box size, objectness, then per-class scores.
func (n *Net) parse(out gocv.Mat, imgW, imgH int) ([]vision.Detection, error) {
	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("detect: unexpected output rank %d", len(dims))
	}
	rows, cols := dims[1], dims[2]
	if cols != 5+len(n.cfg.ClassNames) {
		return nil, fmt.Errorf("detect: network has %d classes, config names %d",
			cols-5, len(n.cfg.ClassNames))
	}

	flat := out.Reshape(1, rows)
	defer flat.Close()

	// The blob is a plain resize to a square input; map back to frame pixels.
	scaleX := float64(imgW) / float64(n.cfg.InputSize)
	scaleY := float64(imgH) / float64(n.cfg.InputSize)

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)
	for r := 0; r < rows; r++ {
		obj := flat.GetFloatAt(r, 4)
		if obj < n.cfg.ScoreThreshold {
			continue
		}

		best, bestScore := 0, float32(0)
		for c := 0; c < len(n.cfg.ClassNames); c++ {
			if s := flat.GetFloatAt(r, 5+c); s > bestScore {
				best, bestScore = c, s
			}
		}
		score := obj * bestScore
		if score < n.cfg.ScoreThreshold {
			continue
		}

		cx := float64(flat.GetFloatAt(r, 0)) * scaleX
		cy := float64(flat.GetFloatAt(r, 1)) * scaleY
		w := float64(flat.GetFloatAt(r, 2)) * scaleX
		h := float64(flat.GetFloatAt(r, 3)) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, score)
		classes = append(classes, best)
	}

	keep := gocv.NMSBoxes(boxes, scores, n.cfg.ScoreThreshold, n.cfg.NMSThreshold)

	dets := make([]vision.Detection, 0, len(keep))
	for _, i := range keep {
		dets = append(dets, vision.Detection{
			Class: n.cfg.ClassNames[classes[i]],
			Box: vision.Box{
				X1: float64(boxes[i].Min.X),
				Y1: float64(boxes[i].Min.Y),
				X2: float64(boxes[i].Max.X),
				Y2: float64(boxes[i].Max.Y),
			},
			Confidence: float64(scores[i]),
		})
	}
	return dets, nil
}
