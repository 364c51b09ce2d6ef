package model

import "time"

// Sample is one (station, T0) training example: a history of crops, T0 first,
// and its label.
type Sample struct {
	StationID  string
	T0         time.Time
	Frames     []Crop
	Timestamps []time.Time // One per frame, parallel to Frames.
	Label      Label
}
