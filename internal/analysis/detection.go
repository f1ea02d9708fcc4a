package analysis

import (
	"math"

	"github.com/pkg/errors"
)

// Frame describes the dimensions of an analyzed frame.
type Frame struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns Width*Height.
func (f Frame) Area() int {
	return f.Width * f.Height
}

// Validate returns ErrInvalidDimension when either side is not positive.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrInvalidDimension, "frame %dx%d", f.Width, f.Height)
	}
	return nil
}

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Validate checks that the box has positive width and height.
func (b Box) Validate() error {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidInput, "box %+v has non-finite coordinate", b)
		}
	}
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return errors.Wrapf(ErrInvalidInput, "box %+v is empty", b)
	}
	return nil
}

// Detection is one detected person as handed over by the detection collaborator.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Validate checks the box and that the confidence lies in [0,1].
func (d Detection) Validate() error {
	if err := d.Box.Validate(); err != nil {
		return err
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return errors.Wrapf(ErrInvalidInput, "confidence %v outside [0,1]", d.Confidence)
	}
	return nil
}

// ClipBox clamps a box into [0,width] x [0,height]. A box lying entirely
// outside the frame collapses onto the nearest edge, so its center still
// falls on a boundary cell.
func ClipBox(b Box, frame Frame) Box {
	w, h := float64(frame.Width), float64(frame.Height)
	return Box{
		X1: clamp(b.X1, 0, w),
		Y1: clamp(b.Y1, 0, h),
		X2: clamp(b.X2, 0, w),
		Y2: clamp(b.Y2, 0, h),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
