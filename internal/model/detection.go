package model

// Box is an axis-aligned rectangle in original image pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection represents one object found by the detector.
type Detection struct {
	ClassIndex int     `json:"class_index"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}
