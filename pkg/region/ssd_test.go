package region

import (
	"image"
	"testing"

	"go.viam.com/test"
)

var ssdLabels = []string{"background", "person", "cell phone", "", "mobile phone"}

func TestDecodeSSD(t *testing.T) {
	frame := image.Rect(0, 0, 640, 480)

	tests := []struct {
		name string
		row  []float32
		want []Detection
	}{
		{
			name: "relative box scaled to frame",
			row:  []float32{0, 2, 0.9, 0.25, 0.25, 0.75, 0.5},
			want: []Detection{{Box: image.Rect(160, 120, 480, 240), Score: float64(float32(0.9)), Label: "cell phone"}},
		},
		{
			name: "box outside the frame is clamped",
			row:  []float32{0, 2, 0.5, -0.25, 0, 1.5, 0.5},
			want: []Detection{{Box: image.Rect(0, 0, 640, 240), Score: 0.5, Label: "cell phone"}},
		},
		{
			name: "inverted box is canonicalized",
			row:  []float32{0, 1, 0.75, 0.5, 0.5, 0.25, 0.25},
			want: []Detection{{Box: image.Rect(160, 120, 320, 240), Score: 0.75, Label: "person"}},
		},
		{
			name: "empty box is dropped",
			row:  []float32{0, 2, 0.9, 0.5, 0.5, 0.5, 0.75},
			want: []Detection{},
		},
		{
			name: "box entirely outside is dropped",
			row:  []float32{0, 2, 0.9, 1.25, 1.25, 1.5, 1.5},
			want: []Detection{},
		},
		{
			name: "short row is ignored",
			row:  []float32{0, 2, 0.9, 0.25},
			want: []Detection{},
		},
		{
			name: "class without a label",
			row:  []float32{0, 3, 0.5, 0, 0, 0.5, 0.5},
			want: []Detection{{Box: image.Rect(0, 0, 320, 240), Score: 0.5, Label: "class-3"}},
		},
		{
			name: "class past the labels",
			row:  []float32{0, 90, 0.5, 0, 0, 0.5, 0.5},
			want: []Detection{{Box: image.Rect(0, 0, 320, 240), Score: 0.5, Label: "class-90"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeSSD([][]float32{tc.row}, frame, ssdLabels)
			test.That(t, got, test.ShouldResemble, tc.want)
		})
	}
}

func TestDecodeSSDHonorsFrameOrigin(t *testing.T) {
	got := DecodeSSD([][]float32{{0, 2, 0.5, 0, 0, 0.5, 0.5}}, image.Rect(100, 50, 300, 150), ssdLabels)
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, got[0].Box, test.ShouldResemble, image.Rect(100, 50, 200, 100))
}

func TestDecodeSSDThenPhoneFilter(t *testing.T) {
	rows := [][]float32{
		{0, 1, 0.95, 0, 0, 0.5, 0.5},        //person
		{0, 2, 0.2, 0, 0, 0.5, 0.5},         //phone below threshold
		{0, 2, 0.8, 0.25, 0.25, 0.75, 0.75}, //phone
		{0, 4, 0.5, 0.5, 0, 1, 0.5},         //phone under its other name
		{0, 2, 0.9, 0.5, 0.5, 0.5, 0.5},     //phone with an empty box
		{0, 3, 0.99, 0, 0, 1, 1},            //unlabeled class
	}
	dets := PhoneFilter(0.3)(DecodeSSD(rows, image.Rect(0, 0, 640, 480), ssdLabels))

	test.That(t, dets, test.ShouldHaveLength, 2)
	test.That(t, dets[0].Label, test.ShouldEqual, "cell phone")
	test.That(t, dets[0].Box, test.ShouldResemble, image.Rect(160, 120, 480, 360))
	test.That(t, dets[1].Label, test.ShouldEqual, "mobile phone")
	test.That(t, dets[1].Box, test.ShouldResemble, image.Rect(320, 0, 640, 240))

	test.That(t, PhoneFilter(0.3)(DecodeSSD(nil, image.Rect(0, 0, 640, 480), ssdLabels)), test.ShouldBeEmpty)
}

func TestParseLabels(t *testing.T) {
	labels := ParseLabels("background\r\nperson\n  cell phone \n")
	test.That(t, labels, test.ShouldResemble, []string{"background", "person", "cell phone", ""})
	test.That(t, LabelFor(labels, 2), test.ShouldEqual, "cell phone")
	test.That(t, LabelFor(labels, 3), test.ShouldEqual, "class-3")
}
