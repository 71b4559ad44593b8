// Package descriptor holds the binary feature vectors produced by the extractor
// and the Hamming metric used to compare them.
package descriptor

import (
	"errors"
	"fmt"
	"math/bits"
)

// ORBWidth is the byte width of an ORB descriptor (256 bits).
const ORBWidth = 32

var (
	ErrWidthMismatch = errors.New("descriptors have different widths")
	ErrInvalidWidth  = errors.New("invalid descriptor width")
)

// Descriptor is one fixed-width binary vector describing a keypoint neighbourhood.
type Descriptor []byte

// Set is the ordered list of descriptors extracted from a single image.
// It is never modified once built.
type Set []Descriptor

// FromBytes splits a row-major descriptor matrix into a Set.
// An empty buffer yields an empty Set.
func FromBytes(data []byte, width int) (Set, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidWidth, len(data), width)
	}
	rows := len(data) / width
	set := make(Set, rows)
	for i := 0; i < rows; i++ {
		d := make(Descriptor, width)
		copy(d, data[i*width:(i+1)*width])
		set[i] = d
	}
	return set, nil
}

// Width returns the byte width of the set's descriptors, or 0 for an empty set.
func (s Set) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Hamming counts the differing bits between a and b.
// Both must have the same width.
func Hamming(a, b Descriptor) int {
	var dist int
	i := 0
	for ; i+8 <= len(a); i += 8 {
		x := uint64(a[i]^b[i]) | uint64(a[i+1]^b[i+1])<<8 | uint64(a[i+2]^b[i+2])<<16 | uint64(a[i+3]^b[i+3])<<24 |
			uint64(a[i+4]^b[i+4])<<32 | uint64(a[i+5]^b[i+5])<<40 | uint64(a[i+6]^b[i+6])<<48 | uint64(a[i+7]^b[i+7])<<56
		dist += bits.OnesCount64(x)
	}
	for ; i < len(a); i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist
}

// Nearest returns the index and distance of the descriptor in train closest to q.
// The first minimum wins. It returns -1 when train is empty.
func Nearest(q Descriptor, train Set) (idx, dist int) {
	idx = -1
	for i, t := range train {
		d := Hamming(q, t)
		if idx == -1 || d < dist {
			idx = i
			dist = d
		}
	}
	return idx, dist
}

// CheckWidth reports an error unless every descriptor in a and b has the same
// width. Rows are checked individually so a ragged set is rejected before
// Hamming could index past a short row.
func CheckWidth(a, b Set) error {
	w := a.Width()
	if w == 0 {
		w = b.Width()
	}
	for _, s := range [2]Set{a, b} {
		for i, d := range s {
			if len(d) != w {
				return fmt.Errorf("%w: row %d is %d bytes, want %d", ErrWidthMismatch, i, len(d), w)
			}
		}
	}
	return nil
}
