package diagnosis

import (
	"fmt"

	"leafdoctor/internal/model"
)

// HealthyConfidence is reported when the detector found nothing.
const HealthyConfidence = "100%"

// Diagnosis is the outcome of a single prediction.
type Diagnosis struct {
	Record     model.DiseaseRecord
	ClassIndex int     // model.NoClass when nothing was detected
	Confidence float64 // 1 when nothing was detected
	Label      string
}

// SelectBest returns the detection with the highest confidence.
// Ties keep the detection that comes first.
func SelectBest(detections []model.Detection) (model.Detection, bool) {
	if len(detections) == 0 {
		return model.Detection{}, false
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}

// FormatConfidence renders a [0,1] score as a percentage with two decimals.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

// Diagnose resolves exactly one record for a set of detections.
func (t *Table) Diagnose(detections []model.Detection) Diagnosis {
	best, ok := SelectBest(detections)
	if !ok {
		return Diagnosis{
			Record:     t.Healthy(),
			ClassIndex: model.NoClass,
			Confidence: 1,
			Label:      HealthyConfidence,
		}
	}

	return Diagnosis{
		Record:     t.Lookup(best.ClassIndex),
		ClassIndex: best.ClassIndex,
		Confidence: best.Confidence,
		Label:      FormatConfidence(best.Confidence),
	}
}

// Result converts the diagnosis to the /predict response payload.
func (d Diagnosis) Result() model.PredictionResult {
	return model.PredictionResult{
		DiseaseID:   d.Record.ID,
		DiseaseName: d.Record.Name,
		Confidence:  d.Label,
		Treatment:   d.Record.Treatment,
	}
}
