//go:build !gocv
// +build !gocv

package detect

import (
	"context"
	"errors"

	"github.com/tamzrod/plc-inspector/internal/vision"
)

var errNoGoCV = errors.New("detect: gocv build tag is not enabled")

type Config struct {
	ModelPath      string
	ClassNames     []string
	InputSize      int
	ScoreThreshold float32
	NMSThreshold   float32
}

// Net is a stub when the binary is built without OpenCV.
type Net struct{}

func Open(Config) (*Net, error) {
	return nil, errNoGoCV
}

func (n *Net) Close() error { return nil }

func (n *Net) Detect(context.Context, vision.Frame) ([]vision.Detection, error) {
	return nil, errNoGoCV
}
