package model

import "math"

// LabelVector holds one GHI value per target horizon.
type LabelVector []float64

// HasNaN reports whether any value is NaN.
func (v LabelVector) HasNaN() bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

// LabelPair is the measured and clear-sky GHI at every horizon.
type LabelPair struct {
	True     LabelVector
	ClearSky LabelVector
}

// Label is either labeled, carrying a LabelPair, or unlabeled.
type Label struct {
	pair    LabelPair
	labeled bool
}

// Labeled wraps a complete pair.
func Labeled(pair LabelPair) Label {
	return Label{pair: pair, labeled: true}
}

// Unlabeled returns the label of a sample whose targets are unavailable.
func Unlabeled() Label {
	return Label{}
}

// IsLabeled reports whether the label carries values.
func (l Label) IsLabeled() bool { return l.labeled }

// Pair returns the values and whether they exist.
func (l Label) Pair() (LabelPair, bool) {
	return l.pair, l.labeled
}
