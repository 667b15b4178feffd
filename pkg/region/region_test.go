package region

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestExtractScreenFromDetection(t *testing.T) {
	e := DefaultExtractor()
	det := Detection{Box: image.Rect(0, 0, 200, 100), Score: 0.9, Label: "cell phone"}

	screen, ok := e.Extract(det, image.Rect(0, 0, 640, 480))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, screen.Origin, test.ShouldResemble, image.Pt(0, 0))
	test.That(t, screen.Rect, test.ShouldResemble, image.Rect(30, 30, 170, 70))
	test.That(t, screen.Rect.Dx(), test.ShouldEqual, 140)
	test.That(t, screen.Rect.Dy(), test.ShouldEqual, 40)

	test.That(t, screen.Bands[0].Rect.Dy(), test.ShouldEqual, 12)
	test.That(t, screen.Bands[1].Rect.Dy(), test.ShouldEqual, 16)
	test.That(t, screen.Bands[2].Rect.Dy(), test.ShouldEqual, 12)
	test.That(t, screen.Bands[0].Position, test.ShouldEqual, BandTop)
	test.That(t, screen.Bands[2].Position.String(), test.ShouldEqual, "bottom")
}

func TestExtractIsRelativeToDetectionOrigin(t *testing.T) {
	e := DefaultExtractor()
	det := Detection{Box: image.Rect(100, 50, 300, 150)}

	screen, ok := e.Extract(det, image.Rect(0, 0, 640, 480))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, screen.Rect, test.ShouldResemble, image.Rect(30, 30, 170, 70))
	test.That(t, screen.Absolute(screen.Rect), test.ShouldResemble, image.Rect(130, 80, 270, 120))
}

func TestExtractClampsToFrame(t *testing.T) {
	e := DefaultExtractor()
	frame := image.Rect(0, 0, 320, 240)
	boxes := []image.Rectangle{
		image.Rect(-50, -40, 100, 100),
		image.Rect(250, 200, 400, 300),
		image.Rect(-10, -10, 330, 250),
		image.Rect(300, 100, 200, 20), //non canonical
		image.Rect(319, 239, 321, 241),
	}

	for _, b := range boxes {
		screen, ok := e.Extract(Detection{Box: b}, frame)
		if !ok {
			continue
		}
		abs := screen.Absolute(screen.Rect)
		test.That(t, abs.In(frame), test.ShouldBeTrue)
		test.That(t, screen.Rect.Dx(), test.ShouldBeGreaterThan, 0)
		test.That(t, screen.Rect.Dy(), test.ShouldBeGreaterThan, 0)
		test.That(t, screen.Rect.Min.X, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, screen.Rect.Min.Y, test.ShouldBeGreaterThanOrEqualTo, 0)
		for _, band := range screen.Bands {
			test.That(t, band.Rect.Dy(), test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, screen.Absolute(band.Rect).In(frame) || band.Rect.Empty(), test.ShouldBeTrue)
		}
	}
}

func TestExtractOutsideFrame(t *testing.T) {
	e := DefaultExtractor()
	_, ok := e.Extract(Detection{Box: image.Rect(700, 500, 800, 600)}, image.Rect(0, 0, 640, 480))
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = e.Extract(Detection{Box: image.Rect(10, 10, 11, 11)}, image.Rect(0, 0, 640, 480))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestBandHeightsSumToScreenHeight(t *testing.T) {
	e := DefaultExtractor()
	for h := 1; h <= 257; h++ {
		bands := e.SplitBands(image.Rect(0, 0, 10, h))
		sum := 0
		for i, b := range bands {
			test.That(t, b.Rect.Dy(), test.ShouldBeGreaterThanOrEqualTo, 0)
			if i > 0 {
				test.That(t, b.Rect.Min.Y, test.ShouldEqual, bands[i-1].Rect.Max.Y)
			}
			sum += b.Rect.Dy()
		}
		test.That(t, sum, test.ShouldEqual, h)
	}
}

func TestClampBox(t *testing.T) {
	frame := image.Rect(0, 0, 100, 100)
	test.That(t, ClampBox(image.Rect(-5, -5, 50, 120), frame), test.ShouldResemble, image.Rect(0, 0, 50, 100))
	test.That(t, ClampBox(image.Rect(150, 150, 200, 200), frame), test.ShouldResemble, image.Rectangle{})
}

func TestPhoneFilter(t *testing.T) {
	in := []Detection{
		{Label: "cell phone", Score: 0.8},
		{Label: "Mobile Phone", Score: 0.5},
		{Label: "laptop", Score: 0.99},
		{Label: "cell phone", Score: 0.2},
	}
	out := PhoneFilter(0.3)(in)
	test.That(t, out, test.ShouldHaveLength, 2)
	test.That(t, out[0].Score, test.ShouldEqual, 0.8)
	test.That(t, out[1].Label, test.ShouldEqual, "Mobile Phone")
}
