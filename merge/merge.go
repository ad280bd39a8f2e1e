package merge

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"
)

// Method selects how images are arranged on the composite canvas.
type Method string

const (
	MethodAuto       Method = "auto"
	MethodVertical   Method = "vertical"
	MethodHorizontal Method = "horizontal"
	MethodGrid       Method = "grid"
)

const (
	DefaultSpacing    = 10
	DefaultBackground = "#ffffff"

	// autoAspectThreshold decides the two-image case: wide images stack
	// better top-to-bottom.
	autoAspectThreshold = 1.5
)

// ParseMethod normalizes a method name from config or a CLI flag.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MethodAuto):
		return MethodAuto, nil
	case string(MethodVertical):
		return MethodVertical, nil
	case string(MethodHorizontal):
		return MethodHorizontal, nil
	case string(MethodGrid):
		return MethodGrid, nil
	default:
		return "", fmt.Errorf("unknown merge method %q (want auto, vertical, horizontal or grid)", s)
	}
}

// ParseColor parses a #rrggbb hex color.
func ParseColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("invalid background color %q (want #rrggbb)", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid background color %q: %v", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Options controls a merge. Zero values mean auto method, zero spacing,
// white background and computed grid columns.
type Options struct {
	Method     Method
	Spacing    int
	Background color.Color
	// Cols fixes the grid column count; 0 computes ceil(sqrt(n)).
	Cols int
}

// Layout reports the canvas arrangement a merge produced.
type Layout struct {
	Method Method
	Cols   int
	Rows   int
	Width  int
	Height int
}

// Merge composites images onto a single canvas in strict input order.
// Input order is capture order and is a user-observable contract: images
// appear in the order their regions were selected. A single image passes
// through with its content unchanged. Merging never returns a partial
// composite.
func Merge(images []image.Image, opts Options) (*image.RGBA, Layout, error) {
	if len(images) == 0 {
		return nil, Layout{}, fmt.Errorf("no images to merge")
	}
	if opts.Spacing < 0 {
		return nil, Layout{}, fmt.Errorf("spacing must be >= 0, got %d", opts.Spacing)
	}
	for i, img := range images {
		if img == nil {
			return nil, Layout{}, fmt.Errorf("image %d is nil", i)
		}
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			return nil, Layout{}, fmt.Errorf("image %d has empty bounds %v", i, b)
		}
	}

	method := opts.Method
	if method == "" {
		method = MethodAuto
	}
	background := opts.Background
	if background == nil {
		background = color.White
	}

	if len(images) == 1 {
		out := toRGBA(images[0])
		b := out.Bounds()
		return out, Layout{Method: method, Cols: 1, Rows: 1, Width: b.Dx(), Height: b.Dy()}, nil
	}

	cols := opts.Cols
	if method == MethodAuto {
		method, cols = resolveAuto(images)
	}

	switch method {
	case MethodVertical:
		return mergeVertical(images, opts.Spacing, background)
	case MethodHorizontal:
		return mergeHorizontal(images, opts.Spacing, background)
	case MethodGrid:
		return mergeGrid(images, cols, opts.Spacing, background)
	default:
		return nil, Layout{}, fmt.Errorf("unknown merge method %q", method)
	}
}

// resolveAuto picks a layout from image count and aspect ratios:
// two images stack vertically when their average aspect ratio exceeds the
// threshold, otherwise horizontally; 3-4 images use a 2-column grid; 5+ use
// a grid with computed columns.
func resolveAuto(images []image.Image) (Method, int) {
	n := len(images)
	switch {
	case n == 2:
		var sum float64
		for _, img := range images {
			b := img.Bounds()
			sum += float64(b.Dx()) / float64(b.Dy())
		}
		if sum/float64(n) > autoAspectThreshold {
			return MethodVertical, 0
		}
		return MethodHorizontal, 0
	case n <= 4:
		return MethodGrid, 2
	default:
		return MethodGrid, 0
	}
}

func mergeVertical(images []image.Image, spacing int, background color.Color) (*image.RGBA, Layout, error) {
	maxWidth := 0
	totalHeight := spacing * (len(images) - 1)
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > maxWidth {
			maxWidth = b.Dx()
		}
		totalHeight += b.Dy()
	}

	canvas := newCanvas(maxWidth, totalHeight, background)
	y := 0
	for _, img := range images {
		b := img.Bounds()
		x := (maxWidth - b.Dx()) / 2
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy() + spacing
	}
	return canvas, Layout{Method: MethodVertical, Cols: 1, Rows: len(images), Width: maxWidth, Height: totalHeight}, nil
}

func mergeHorizontal(images []image.Image, spacing int, background color.Color) (*image.RGBA, Layout, error) {
	totalWidth := spacing * (len(images) - 1)
	maxHeight := 0
	for _, img := range images {
		b := img.Bounds()
		totalWidth += b.Dx()
		if b.Dy() > maxHeight {
			maxHeight = b.Dy()
		}
	}

	canvas := newCanvas(totalWidth, maxHeight, background)
	x := 0
	for _, img := range images {
		b := img.Bounds()
		y := (maxHeight - b.Dy()) / 2
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		x += b.Dx() + spacing
	}
	return canvas, Layout{Method: MethodHorizontal, Cols: len(images), Rows: 1, Width: totalWidth, Height: maxHeight}, nil
}

// mergeGrid lays images out row-major. Cells are uniform (max width by max
// height) and each image sits at its cell's top-left corner.
func mergeGrid(images []image.Image, cols, spacing int, background color.Color) (*image.RGBA, Layout, error) {
	n := len(images)
	if cols <= 0 {
		cols = GridCols(n)
	}
	rows := (n + cols - 1) / cols

	cellWidth, cellHeight := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > cellWidth {
			cellWidth = b.Dx()
		}
		if b.Dy() > cellHeight {
			cellHeight = b.Dy()
		}
	}

	width := cellWidth*cols + spacing*(cols-1)
	height := cellHeight*rows + spacing*(rows-1)
	canvas := newCanvas(width, height, background)
	for idx, img := range images {
		b := img.Bounds()
		x := (idx % cols) * (cellWidth + spacing)
		y := (idx / cols) * (cellHeight + spacing)
		draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
	}
	return canvas, Layout{Method: MethodGrid, Cols: cols, Rows: rows, Width: width, Height: height}, nil
}

// GridCols is the computed column count for an n-image grid.
func GridCols(n int) int {
	return int(math.Ceil(math.Sqrt(float64(n))))
}

func newCanvas(width, height int, background color.Color) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	return canvas
}

// toRGBA copies an image into a zero-origin RGBA without altering content.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
