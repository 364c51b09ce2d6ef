package model

// NumChannels is the number of imagery channels stacked in a crop.
const NumChannels = 5

// ChannelNames lists the archive variables stacked into a crop, in order.
var ChannelNames = [NumChannels]string{"ch1", "ch2", "ch3", "ch4", "ch6"}

// Crop is a Size × Size × NumChannels image stored row-major as [row][col][channel].
type Crop struct {
	Size int
	Data []float32
}

// NewCrop allocates a zeroed crop of the given edge length.
func NewCrop(size int) Crop {
	return Crop{Size: size, Data: make([]float32, size*size*NumChannels)}
}

func (c Crop) index(row, col, ch int) int {
	return (row*c.Size+col)*NumChannels + ch
}

// At returns the value at (row, col, ch).
func (c Crop) At(row, col, ch int) float32 {
	return c.Data[c.index(row, col, ch)]
}

// Set stores v at (row, col, ch).
func (c Crop) Set(row, col, ch int, v float32) {
	c.Data[c.index(row, col, ch)] = v
}

// Valid reports whether Data matches Size.
func (c Crop) Valid() bool {
	return c.Size > 0 && len(c.Data) == c.Size*c.Size*NumChannels
}

// Nested returns the crop as [row][col][channel] slices.
func (c Crop) Nested() [][][]float32 {
	out := make([][][]float32, c.Size)
	for r := range out {
		out[r] = make([][]float32, c.Size)
		for col := range out[r] {
			start := c.index(r, col, 0)
			px := make([]float32, NumChannels)
			copy(px, c.Data[start:start+NumChannels])
			out[r][col] = px
		}
	}
	return out
}

// CropFromNested is the inverse of Nested.
func CropFromNested(v [][][]float32) Crop {
	c := NewCrop(len(v))
	for r := range v {
		for col := range v[r] {
			copy(c.Data[c.index(r, col, 0):], v[r][col])
		}
	}
	return c
}
