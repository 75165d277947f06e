package annotate

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tamzrod/plc-inspector/internal/loop"
	"github.com/tamzrod/plc-inspector/internal/vision"
)

// DirSink writes annotated cycle frames into a directory, one JPEG per
// camera per cycle. Render failures are logged and the cycle is skipped;
// the sink never propagates errors back into the loop.
type DirSink struct {
	dir      string
	renderer *Renderer
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("annotate: create sink dir: %w", err)
	}
	return &DirSink{dir: dir, renderer: NewRenderer()}, nil
}

func (s *DirSink) Publish(report loop.CycleReport) {
	stamp := report.Record.At.Format("20060102-150405.000")
	banner := fmt.Sprintf("%s rows=%d dev=%.2fmm",
		report.Record.Outcome, report.Record.RowCount, report.Record.DeviationMM)

	s.write(fmt.Sprintf("%s-%s-top.jpg", stamp, report.Record.Outcome),
		report.Top, report.TopDets, banner)
	s.write(fmt.Sprintf("%s-%s-side.jpg", stamp, report.Record.Outcome),
		report.Side, report.SideDets, banner)
}

func (s *DirSink) write(name string, frame vision.Frame, dets []vision.Detection, banner string) {
	data, err := s.renderer.Render(frame, dets, banner)
	if err != nil {
		log.Printf("annotate: render %s: %v", name, err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		log.Printf("annotate: write %s: %v", name, err)
	}
}
