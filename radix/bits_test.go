package radix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstDiffBit(t *testing.T) {
	t.Parallel()

	for _, tcase := range []*struct {
		Key, Other []byte
		ExpBit     int
		ExpSame    bool
	}{
		{[]byte{5, 10, 0, 0, 1}, []byte{5, 10, 0, 0, 0}, 39, false},
		{[]byte{5, 10, 0, 0, 0}, []byte{5, 10, 0, 0, 0}, 0, true},
		{[]byte{5, 0x80, 0, 0, 0}, []byte{5, 0, 0, 0, 0}, 8, false},
		{[]byte{5, 10, 0, 0, 0}, zeros, 12, false},
		{[]byte{5, 10, 1}, []byte{5, 10}, 23, false},
	} {
		tcase := tcase

		t.Run(fmt.Sprintf("%x/%x", tcase.Key, tcase.Other), func(t *testing.T) {
			b, same := firstDiffBit(tcase.Key, tcase.Other, 1, keyLen(tcase.Key))

			assert.Equal(t, tcase.ExpBit, b)
			assert.Equal(t, tcase.ExpSame, same)
		})
	}
}

func TestContiguous(t *testing.T) {
	t.Parallel()

	for c, exp := range map[byte]bool{
		0x00: true,
		0x80: true,
		0xf0: true,
		0xf8: true,
		0xff: true,
		0x0f: false,
		0xa0: false,
		0x7f: false,
	} {
		assert.Equal(t, exp, contiguous(c), "%08b", c)
	}
}

func TestRefines(t *testing.T) {
	t.Parallel()

	var (
		zero = []byte{0}
		m8   = []byte{2, 0xff}
		m16  = []byte{3, 0xff, 0xff}
		m24  = []byte{4, 0xff, 0xff, 0xff}
		odd  = []byte{4, 0xff, 0x00, 0xff}
	)

	for _, tcase := range []*struct {
		Name string
		M, N []byte
		Exp  bool
	}{
		{"24 refines 16", m24, m16, true},
		{"16 refines 8", m16, m8, true},
		{"16 does not refine 24", m16, m24, false},
		{"equal masks", m16, m16, false},
		{"8 refines zero", m8, zero, true},
		{"zero does not refine 8", zero, m8, false},
		{"non-contiguous refines 8", odd, m8, true},
		{"non-contiguous vs 16", odd, m16, false},
		{"16 vs non-contiguous", m16, odd, false},
	} {
		tcase := tcase

		t.Run(tcase.Name, func(t *testing.T) {
			assert.Equal(t, tcase.Exp, Refines(tcase.M, tcase.N))
		})
	}
}

func TestLexobetter(t *testing.T) {
	t.Parallel()

	var (
		long = []byte{4, 0xff, 0x00, 0xff}
		hi   = []byte{4, 0xff, 0x00, 0xf0}
		lo   = []byte{4, 0xf0, 0x00, 0xff}
		m16  = []byte{3, 0xff, 0xff}
	)

	assert.True(t, lexobetter(long, m16))
	assert.False(t, lexobetter(m16, long))
	assert.True(t, lexobetter(long, hi))
	assert.True(t, lexobetter(hi, lo))
	assert.False(t, lexobetter(lo, hi))
	assert.False(t, lexobetter(hi, hi))
}

func TestSatisfiesLeaf(t *testing.T) {
	t.Parallel()

	var (
		net  = &node{key: []byte{5, 10, 0, 0, 0}, mask: &Mask{bytes: []byte{4, 0xff, 0xff, 0xff}}}
		host = &node{key: []byte{5, 10, 0, 0, 1}}
	)

	assert.True(t, satisfiesLeaf([]byte{5, 10, 0, 0, 5}, net, 1))
	assert.False(t, satisfiesLeaf([]byte{5, 10, 0, 1, 5}, net, 1))
	assert.True(t, satisfiesLeaf([]byte{5, 10, 0, 1, 5}, net, 4))
	assert.True(t, satisfiesLeaf([]byte{5, 10, 0, 0, 1}, host, 1))
	assert.False(t, satisfiesLeaf([]byte{5, 10, 0, 0, 2}, host, 1))
}
