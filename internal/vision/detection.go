// internal/vision/detection.go
package vision

// Box is an axis-aligned bounding box in pixel coordinates, X1<X2 and Y1<Y2.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// CenterX returns the horizontal midpoint of the box.
func (b Box) CenterX() float64 { return (b.X1 + b.X2) / 2 }

// CenterY returns the vertical midpoint of the box.
func (b Box) CenterY() float64 { return (b.Y1 + b.Y2) / 2 }

// Detection is one object reported by the detection model for one frame.
// Immutable, produced fresh per frame, never persisted.
type Detection struct {
	Class      string
	Box        Box
	Confidence float64 // in [0,1]
}

// FilterConfidence returns the detections at or above the floor.
// The original slice is never mutated.
func FilterConfidence(dets []Detection, floor float64) []Detection {
	if floor <= 0 {
		return dets
	}
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= floor {
			out = append(out, d)
		}
	}
	return out
}

// HasClass reports whether any detection carries one of the given classes.
func HasClass(dets []Detection, classes []string) bool {
	for _, d := range dets {
		for _, c := range classes {
			if d.Class == c {
				return true
			}
		}
	}
	return false
}
