package screenshot

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/kbinani/screenshot"
)

// Region is an axis-aligned rectangle in virtual-screen coordinates.
// X/Y may be negative on multi-monitor setups where a display sits left of
// or above the primary.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the region has positive dimensions.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Rect converts the region to an image.Rectangle in virtual-screen space.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d at (%d, %d)", r.Width, r.Height, r.X, r.Y)
}

// OutOfBoundsError is returned when a region does not lie fully inside the
// captured screen bounds. Regions are rejected, never clamped.
type OutOfBoundsError struct {
	Region Region
	Bounds image.Rectangle
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("region %s is outside screen bounds %v", e.Region, e.Bounds)
}

// Screenshot is one full grab of the virtual screen. Bounds is the
// virtual-screen rectangle the pixels cover; the image itself is addressed
// from (0,0).
type Screenshot struct {
	Image  *image.RGBA
	Bounds image.Rectangle
}

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// Capture grabs the entire virtual screen across all active displays.
func Capture() (*Screenshot, error) {
	bounds, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return &Screenshot{Image: img, Bounds: bounds}, nil
}

// Crop extracts the region's pixels from the frame as a new image.
func (s *Screenshot) Crop(region Region) (*image.RGBA, error) {
	if !region.Valid() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}
	rect := region.Rect()
	if !rect.In(s.Bounds) {
		return nil, &OutOfBoundsError{Region: region, Bounds: s.Bounds}
	}
	src := rect.Sub(s.Bounds.Min).Add(s.Image.Bounds().Min)
	out := image.NewRGBA(image.Rect(0, 0, region.Width, region.Height))
	draw.Draw(out, out.Bounds(), s.Image, src.Min, draw.Src)
	return out, nil
}

// CaptureRegions produces one image per region, order-preserving and 1:1 with
// the input. The virtual screen is grabbed exactly once, so every region
// reflects the same instant and the grab cost is amortized across regions.
func CaptureRegions(regions []Region) ([]*image.RGBA, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions to capture")
	}
	frame, err := Capture()
	if err != nil {
		return nil, err
	}
	images := make([]*image.RGBA, 0, len(regions))
	for _, region := range regions {
		img, err := frame.Crop(region)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
