package models

import "math"

// Coordinate is a WGS84 position in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether c is a finite position within WGS84 range
func (c Coordinate) Valid() bool {
	for _, v := range []float64{c.Latitude, c.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Category is a recyclable-material classification served by the catalog
type Category struct {
	ID      int    `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	IconURI string `json:"image_url" yaml:"image_url"`
}

// CollectionPoint is a physical place accepting one or more categories
type CollectionPoint struct {
	ID       string     `json:"id" yaml:"id"`
	Title    string     `json:"title" yaml:"title"`
	ImageURI string     `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Address  string     `json:"address,omitempty" yaml:"address,omitempty"`
	City     string     `json:"city,omitempty" yaml:"city,omitempty"`
	UF       string     `json:"uf,omitempty" yaml:"uf,omitempty"`
	Email    string     `json:"email,omitempty" yaml:"email,omitempty"`
	WhatsApp string     `json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
	Location Coordinate `json:"location" yaml:"location"`
	ItemIDs  []int      `json:"items" yaml:"items"`
}

// Accepts reports whether the point collects at least one of the given
// categories. An empty filter accepts everything.
func (p *CollectionPoint) Accepts(categoryIDs []int) bool {
	if len(categoryIDs) == 0 {
		return true
	}
	for _, want := range categoryIDs {
		for _, have := range p.ItemIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Coordinate
	TopRight   Coordinate
}

// Contains reports whether c lies inside the box, edges included
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.BottomLeft.Latitude && c.Latitude <= b.TopRight.Latitude &&
		c.Longitude >= b.BottomLeft.Longitude && c.Longitude <= b.TopRight.Longitude
}
