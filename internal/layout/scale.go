package layout

// Transform maps preview-canvas coordinates onto a device's logical canvas.
// Apply as: device = preview*Scale + Offset, per axis.
type Transform struct {
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Fit computes the per-axis scale factors and centring offsets that map the
// preview canvas onto a device canvas. Axes scale independently; the preview
// stretches rather than letterboxes. Zero or negative dimensions are clamped
// to 1 so degenerate panels never divide by zero.
func Fit(device, canvas Size) Transform {
	device = device.normalized()
	canvas = canvas.normalized()

	t := Transform{
		ScaleX: float64(device.Width) / float64(canvas.Width),
		ScaleY: float64(device.Height) / float64(canvas.Height),
	}
	t.OffsetX = (float64(canvas.Width) - float64(device.Width)*t.ScaleX) / 2
	t.OffsetY = (float64(canvas.Height) - float64(device.Height)*t.ScaleY) / 2
	return t
}
