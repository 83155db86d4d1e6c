package ai

// AnchorCount returns how many predictions a YOLOv8 head emits for a square
// input: one per cell of the stride 8, 16 and 32 grids.
func AnchorCount(inputSize int64) int64 {
	var total int64
	for _, stride := range []int64{8, 16, 32} {
		cells := inputSize / stride
		total += cells * cells
	}
	return total
}
