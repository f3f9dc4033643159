package entity

import (
	"encoding/json"
	"fmt"
)

// Point is a pixel coordinate on the receipt image.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var xy []float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("point: want 2 coordinates, got %d", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// BoundingBox is a 4-point polygon: top-left, top-right, bottom-right, bottom-left.
type BoundingBox [4]Point

// Top is the Y of the top-left corner, the key used to approximate reading order.
func (b BoundingBox) Top() float64 {
	return b[0].Y
}

// TextFragment is one OCR detection. Fragments are immutable once produced.
type TextFragment struct {
	Text        string      `json:"text"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}
