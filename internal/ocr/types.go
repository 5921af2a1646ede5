/**
 * OCR types - shared data structures for text detection
 */

package ocr

// Detection is one recognized text fragment from the OCR engine.
// It is ephemeral and exists only within one extraction call.
type Detection struct {
	Box        BoundingBox
	Text       string  // raw recognized text, possibly untrimmed
	Confidence float64 // [0,1]
}

// BoundingBox represents coordinates of a detected region.
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Centroid returns the box center, the average of the top-left and
// bottom-right corners.
func (b BoundingBox) Centroid() (x, y float64) {
	x = (float64(b.X) + float64(b.X+b.Width)) / 2
	y = (float64(b.Y) + float64(b.Y+b.Height)) / 2
	return x, y
}
