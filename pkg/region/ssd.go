package region

import (
	"fmt"
	"image"
	"strings"
)

//ssdRowLen is the width of an SSD output row: [batch, class, score, xmin, ymin, xmax, ymax]
const ssdRowLen = 7

//DecodeSSD turns raw SSD output rows into detections on a frame with given bounds.
//Coordinates are relative to the frame, boxes are clamped to it and empty boxes are dropped.
//Rows shorter than seven values are ignored.
func DecodeSSD(rows [][]float32, bounds image.Rectangle, labels []string) []Detection {
	w, h := float32(bounds.Dx()), float32(bounds.Dy())
	dets := make([]Detection, 0, len(rows))
	for _, row := range rows {
		if len(row) < ssdRowLen {
			continue
		}
		box := image.Rect(
			bounds.Min.X+int(row[3]*w),
			bounds.Min.Y+int(row[4]*h),
			bounds.Min.X+int(row[5]*w),
			bounds.Min.Y+int(row[6]*h),
		)
		box = ClampBox(box, bounds)
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{
			Box:   box,
			Score: float64(row[2]),
			Label: LabelFor(labels, int(row[1])),
		})
	}
	return dets
}

//LabelFor returns the name of class, or "class-N" when labels do not cover it
func LabelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) && labels[class] != "" {
		return labels[class]
	}
	return fmt.Sprintf("class-%d", class)
}

//ParseLabels reads one label per line, line N naming class N
func ParseLabels(data string) []string {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	labels := make([]string, len(lines))
	for i, l := range lines {
		labels[i] = strings.TrimSpace(l)
	}
	return labels
}
