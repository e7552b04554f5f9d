// Package set provides small dense integer sets.
package set

import (
	"iter"
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Bitmap is a set of non-negative ints. The zero value is an empty set.
	Bitmap struct {
		b  []uint64
		b0 [1]uint64
	}
)

func (s *Bitmap) Set(i int) {
	i, j := s.ij(i)

	s.grow(i)

	s.b[i] |= 1 << j
}

func (s *Bitmap) Clear(i int) {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

func (s *Bitmap) IsSet(i int) bool {
	i, j := s.ij(i)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s *Bitmap) Size() (r int) {
	if s == nil {
		return 0
	}

	for _, c := range s.b {
		r += bits.OnesCount64(c)
	}

	return r
}

func (s *Bitmap) Reset() {
	for i := range s.b {
		s.b[i] = 0
	}
}

// All yields members in increasing order.
func (s *Bitmap) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, x := range s.b {
			for x != 0 {
				j := bits.TrailingZeros64(x)
				x &^= 1 << j

				if !yield(i*64 + j) {
					return
				}
			}
		}
	}
}

func (s *Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s == nil || s.b == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	for i := range s.All() {
		b = e.AppendInt(b, i)
	}

	return e.AppendBreak(b)
}

func (s *Bitmap) ij(pos int) (i int, j int) {
	if pos < 0 {
		panic("negative set member")
	}

	return pos / 64, pos % 64
}

func (s *Bitmap) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
