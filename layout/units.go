package layout

// 页面以像素描述，canvas 渲染器以毫米为长度单位、以 pt 为字号单位，这里集中做换算。

// Conversion constants between pt, mm and inch.
const (
	PtToMm    = 0.352777
	MmToPt    = 1.0 / PtToMm
	MmPerInch = 25.4
)

// PxToMm converts a pixel length at dpi to millimeters.
func PxToMm(px, dpi float64) float64 {
	if dpi <= 0 {
		dpi = 96
	}
	return px * MmPerInch / dpi
}

// PxToPt converts a pixel length at dpi to points.
func PxToPt(px, dpi float64) float64 { return PxToMm(px, dpi) * MmToPt }

// MmToPx converts millimeters to pixels at dpi.
func MmToPx(mm, dpi float64) float64 {
	if dpi <= 0 {
		dpi = 96
	}
	return mm * dpi / MmPerInch
}
