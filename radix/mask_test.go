package radix

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	for _, tcase := range []*struct {
		Mask []byte
		Skip int
		Exp  []byte
	}{
		{[]byte{5, 0xff, 0xff, 0, 0}, 1, []byte{3, 0xff, 0xff}},
		{[]byte{5, 0xff, 0, 0xff, 0}, 1, []byte{4, 0xff, 0, 0xff}},
		{[]byte{5, 0, 0, 0, 0}, 1, nil},
		{[]byte{1}, 1, nil},
		{nil, 1, nil},
		{[]byte{3, 0xff, 0xff, 0xff, 0xff}, 1, []byte{3, 0xff, 0xff}},
		{[]byte{5, 0, 0, 0xff, 0}, 3, []byte{4, 0xff, 0xff, 0xff}},
		{[]byte{5, 0, 0, 0, 0}, 3, nil},
		{[]byte{5, 0xf0, 0, 0, 0}, 0, []byte{2, 0xf0}},
	} {
		tcase := tcase

		t.Run(fmt.Sprintf("%x@%d", tcase.Mask, tcase.Skip), func(t *testing.T) {
			assert.Equal(t, tcase.Exp, normalize(tcase.Mask, tcase.Skip))
		})
	}
}

func TestIntern(t *testing.T) {
	t.Parallel()

	mt := NewMaskTree(0, nil)

	for _, tcase := range []*struct {
		Mask      []byte
		ExpBit    int
		ExpNormal bool
		ExpOnes   int
	}{
		{[]byte{5, 0xff, 0xff, 0xff, 0}, 32, true, 24},
		{[]byte{5, 0xff, 0xff, 0xf0, 0}, 28, true, 20},
		{[]byte{5, 0xff, 0xff, 0xff, 0xfe}, 39, true, 31},
		{[]byte{5, 0x80, 0, 0, 0}, 9, true, 1},
		{[]byte{5, 0xff, 0, 0xff, 0}, 16, false, 16},
		{[]byte{5, 0xff, 0xff, 0x0f, 0}, 24, false, 20},
	} {
		tcase := tcase

		t.Run(fmt.Sprintf("%x", tcase.Mask), func(t *testing.T) {
			m, err := mt.Intern(tcase.Mask, 1, false)
			require.NoError(t, err)
			require.NotNil(t, m)

			assert.Equal(t, tcase.ExpBit, m.Bit())
			assert.Equal(t, tcase.ExpNormal, m.Normal())
			assert.Equal(t, tcase.ExpOnes, m.Ones())

			again, err := mt.Intern(append([]byte(nil), tcase.Mask...), 1, false)
			require.NoError(t, err)
			assert.Same(t, m, again)

			found, err := mt.Intern(tcase.Mask, 1, true)
			require.NoError(t, err)
			assert.Same(t, m, found)
		})
	}
}

func TestIntern_Zero(t *testing.T) {
	t.Parallel()

	mt := NewMaskTree(0, nil)

	for _, mask := range [][]byte{{5, 0, 0, 0, 0}, {1}, {0}} {
		m, err := mt.Intern(mask, 1, false)
		require.NoError(t, err)
		assert.Same(t, mt.Zero(), m)
	}
	assert.Equal(t, 0, mt.Len())
	assert.Equal(t, 0, mt.Zero().Ones())
}

func TestIntern_FindOnly(t *testing.T) {
	t.Parallel()

	mt := NewMaskTree(0, nil)

	m, err := mt.Intern([]byte{5, 0xff, 0xff, 0, 0}, 1, true)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, 0, mt.Len())
}

func TestIntern_Limit(t *testing.T) {
	t.Parallel()

	mt := NewMaskTree(1, nil)

	m16, err := mt.Intern([]byte{5, 0xff, 0xff, 0, 0}, 1, false)
	require.NoError(t, err)

	_, err = mt.Intern([]byte{5, 0xff, 0xff, 0xff, 0}, 1, false)
	assert.True(t, errors.Is(err, ErrNoMemory))

	again, err := mt.Intern([]byte{5, 0xff, 0xff, 0, 0}, 1, false)
	require.NoError(t, err)
	assert.Same(t, m16, again)
	assert.Equal(t, 1, mt.Len())
}

func TestRelease(t *testing.T) {
	t.Parallel()

	mt := NewMaskTree(0, nil)

	var masks []*Mask
	for _, mask := range [][]byte{
		{5, 0xff, 0, 0, 0},
		{5, 0xff, 0xff, 0, 0},
		{5, 0xff, 0xff, 0xff, 0},
	} {
		m, err := mt.Intern(mask, 1, false)
		require.NoError(t, err)
		mt.retain(m)
		masks = append(masks, m)
	}
	mt.retain(masks[1])
	require.Equal(t, 3, mt.Len())

	mt.Release(masks[1])
	assert.Equal(t, 3, mt.Len())

	mt.Release(masks[1])
	assert.Equal(t, 2, mt.Len())

	m, err := mt.Intern([]byte{5, 0xff, 0xff, 0, 0}, 1, true)
	require.NoError(t, err)
	assert.Nil(t, m)

	for _, m := range []*Mask{masks[0], masks[2], mt.Zero()} {
		mt.Release(m)
	}
	assert.Equal(t, 0, mt.Len())
	assert.Equal(t, 2, mt.head.pool.Len())
}
