package imageproc

import "math"

// PlanDimensions fits (width, height) into the bounds keeping the aspect ratio. Images that
// already fit are returned unchanged. The width is clamped first and the height is checked
// afterwards against the already-adjusted value, so both steps may apply.
func PlanDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	aspect := float64(width) / float64(height)

	if width > maxWidth {
		width = maxWidth
		height = roundPositive(float64(width) / aspect)
	}

	if height > maxHeight {
		height = maxHeight
		width = roundPositive(float64(height) * aspect)
	}

	return width, height
}

// roundPositive - для экстремальных пропорций не даем стороне схлопнуться в ноль
func roundPositive(v float64) int {
	r := int(math.Round(v))
	if r < 1 {
		return 1
	}
	return r
}
