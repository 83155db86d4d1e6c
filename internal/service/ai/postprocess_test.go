package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// yoloOutput builds a [1, 4+classes, anchors] tensor from per-anchor rows.
func yoloOutput(classes int, rows [][]float32) ([]float32, []int64) {
	channels := 4 + classes
	anchors := len(rows)
	out := make([]float32, channels*anchors)
	for a, row := range rows {
		for c := 0; c < channels; c++ {
			out[c*anchors+a] = row[c]
		}
	}
	return out, []int64{1, int64(channels), int64(anchors)}
}

func TestDecodeYOLO_PicksBestClassPerAnchor(t *testing.T) {
	out, shape := yoloOutput(3, [][]float32{
		{50, 50, 20, 20, 0.1, 0.8734, 0.3},
		{150, 150, 20, 20, 0.05, 0.1, 0.2},
	})

	dets, err := DecodeYOLO(out, shape, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, 1, dets[0].ClassIndex)
	require.InDelta(t, 0.8734, dets[0].Confidence, 1e-6)
	require.Equal(t, 40, dets[0].Box.X)
	require.Equal(t, 20, dets[0].Box.Width)
}

func TestDecodeYOLO_SortedByConfidence(t *testing.T) {
	out, shape := yoloOutput(2, [][]float32{
		{10, 10, 5, 5, 0.4, 0},
		{100, 100, 5, 5, 0, 0.9},
		{200, 200, 5, 5, 0.6, 0},
	})

	dets, err := DecodeYOLO(out, shape, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, dets, 3)
	require.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	require.InDelta(t, 0.6, dets[1].Confidence, 1e-6)
	require.InDelta(t, 0.4, dets[2].Confidence, 1e-6)
}

func TestDecodeYOLO_NMSWithinClassOnly(t *testing.T) {
	out, shape := yoloOutput(2, [][]float32{
		{50, 50, 40, 40, 0.9, 0},
		{52, 52, 40, 40, 0.7, 0}, // overlaps the first, same class
		{51, 51, 40, 40, 0, 0.6}, // overlaps, different class
	})

	dets, err := DecodeYOLO(out, shape, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, dets, 2)
	require.Equal(t, 0, dets[0].ClassIndex)
	require.Equal(t, 1, dets[1].ClassIndex)
}

func TestDecodeYOLO_TransposedLayout(t *testing.T) {
	// [1, anchors, channels]
	rows := make([][]float32, 8)
	for i := range rows {
		rows[i] = []float32{float32(i * 50), 10, 4, 4, 0, 0}
	}
	rows[3][5] = 0.77

	var out []float32
	for _, row := range rows {
		out = append(out, row...)
	}

	dets, err := DecodeYOLO(out, []int64{1, 8, 6}, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, dets, 1)
	require.Equal(t, 1, dets[0].ClassIndex)
}

func TestDecodeYOLO_MaxDetections(t *testing.T) {
	rows := make([][]float32, 10)
	for i := range rows {
		rows[i] = []float32{float32(i * 100), 0, 10, 10, 0.5 + float32(i)/100}
	}
	out, shape := yoloOutput(1, rows)

	opts := DefaultOptions()
	opts.MaxDetections = 3
	dets, err := DecodeYOLO(out, shape, nil, opts)
	require.NoError(t, err)
	require.Len(t, dets, 3)
}

func TestDecodeYOLO_BadShapes(t *testing.T) {
	_, err := DecodeYOLO(make([]float32, 10), []int64{10}, nil, DefaultOptions())
	require.Error(t, err)

	_, err = DecodeYOLO(make([]float32, 40), []int64{1, 4, 10}, nil, DefaultOptions())
	require.Error(t, err)

	_, err = DecodeYOLO(make([]float32, 5), []int64{1, 6, 10}, nil, DefaultOptions())
	require.Error(t, err)
}

func TestIoU(t *testing.T) {
	a := candidate{x1: 0, y1: 0, x2: 10, y2: 10}
	require.InDelta(t, 1.0, iou(a, a), 1e-9)
	require.InDelta(t, 0.0, iou(a, candidate{x1: 20, y1: 20, x2: 30, y2: 30}), 1e-9)
	require.InDelta(t, 25.0/175.0, iou(a, candidate{x1: 5, y1: 5, x2: 15, y2: 15}), 1e-9)
}
