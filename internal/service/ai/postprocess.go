package ai

import (
	"fmt"
	"sort"

	"leafdoctor/internal/model"
)

type candidate struct {
	classIndex     int
	confidence     float64
	x1, y1, x2, y2 float64
}

// DecodeYOLO turns a raw YOLOv8 output tensor into detections.
// The tensor is [1, 4+classes, anchors]; a transposed [1, anchors, 4+classes]
// layout is accepted as well.
func DecodeYOLO(output []float32, shape []int64, lb *Letterbox, opts Options) ([]model.Detection, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}

	channels, anchors := int(shape[1]), int(shape[2])
	transposed := false
	if channels > anchors {
		channels, anchors = anchors, channels
		transposed = true
	}
	if channels <= 4 {
		return nil, fmt.Errorf("output shape %v has no class scores", shape)
	}
	if len(output) < channels*anchors {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(output), shape, channels*anchors)
	}

	at := func(c, a int) float64 {
		if transposed {
			return float64(output[a*channels+c])
		}
		return float64(output[c*anchors+a])
	}

	numClasses := channels - 4
	candidates := make([]candidate, 0, 64)
	for a := 0; a < anchors; a++ {
		bestClass, bestScore := 0, at(4, a)
		for c := 1; c < numClasses; c++ {
			if s := at(4+c, a); s > bestScore {
				bestClass, bestScore = c, s
			}
		}
		if bestScore < opts.ConfThreshold {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		candidates = append(candidates, candidate{
			classIndex: bestClass,
			confidence: bestScore,
			x1:         cx - w/2,
			y1:         cy - h/2,
			x2:         cx + w/2,
			y2:         cy + h/2,
		})
	}

	kept := nonMaxSuppression(candidates, opts.IoUThreshold, opts.MaxDetections)

	detections := make([]model.Detection, 0, len(kept))
	for _, k := range kept {
		detections = append(detections, model.Detection{
			ClassIndex: k.classIndex,
			Confidence: k.confidence,
			Box:        boxOf(k, lb),
		})
	}
	return detections, nil
}

func boxOf(c candidate, lb *Letterbox) model.Box {
	if lb == nil {
		return model.Box{X: int(c.x1), Y: int(c.y1), Width: int(c.x2 - c.x1), Height: int(c.y2 - c.y1)}
	}
	r := lb.ToSource(c.x1, c.y1, c.x2, c.y2)
	return model.Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// nonMaxSuppression keeps the strongest box of every overlapping cluster
// within a class. Result is sorted by confidence, highest first.
func nonMaxSuppression(candidates []candidate, iouThreshold float64, limit int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	suppressed := make([]bool, len(candidates))
	kept := make([]candidate, 0, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		if len(kept) == limit {
			break
		}
		for j := i + 1; j < len(candidates); j++ {
			if suppressed[j] || candidates[j].classIndex != candidates[i].classIndex {
				continue
			}
			if iou(candidates[i], candidates[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
