package radix

import (
	"bytes"
	"math/bits"
)

// maxKeyLen bounds every key and mask: the length byte can't say more.
const maxKeyLen = 256

var (
	zeros = make([]byte, maxKeyLen)
	ones  = bytes.Repeat([]byte{0xff}, maxKeyLen)
)

// byteAt returns b[off] or 0 past the end of b.
func byteAt(b []byte, off int) byte {
	if off < len(b) {
		return b[off]
	}
	return 0
}

// keyLen returns the length recorded in the first byte of b.
func keyLen(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	return int(b[0])
}

// search descends from x to the leaf the key's bits lead to.
func (h *Head) search(key []byte, x Ref) Ref {
	for n := h.at(x); n.kind == kindBranch; n = h.at(x) {
		if n.bmask&byteAt(key, n.off) != 0 {
			x = n.right
		} else {
			x = n.left
		}
	}
	return x
}

// searchMasked is search, but only goes right when the tested bit
// is set in both key and mask.
func (h *Head) searchMasked(key, mask []byte, x Ref) Ref {
	for n := h.at(x); n.kind == kindBranch; n = h.at(x) {
		if n.bmask&byteAt(mask, n.off) != 0 && n.bmask&byteAt(key, n.off) != 0 {
			x = n.right
		} else {
			x = n.left
		}
	}
	return x
}

// firstDiffBit compares key with other over bytes [from, to) and returns
// the absolute index of the first differing bit. same is true when no bit
// differs.
func firstDiffBit(key, other []byte, from, to int) (b int, same bool) {
	for i := from; i < to; i++ {
		if d := byteAt(key, i) ^ byteAt(other, i); d != 0 {
			return i<<3 + bits.LeadingZeros8(d), false
		}
	}
	return 0, true
}

// contiguous reports whether c is a run of ones followed by zeros.
func contiguous(c byte) bool {
	n := ^c + 1
	return n&c == n
}

// Refines reports whether mask m is strictly more specific than mask n:
// every bit set in n is set in m and the two are not equal.
func Refines(m, n []byte) bool {
	lenN, lenM := keyLen(n), keyLen(m)
	lim, lim2 := lenN, lenN
	longer := lenN - lenM
	if longer > 0 {
		lim -= longer
	}
	equal := true
	i := 1
	for ; i < lim; i++ {
		nb, mb := byteAt(n, i), byteAt(m, i)
		if nb&^mb != 0 {
			return false
		}
		if nb != mb {
			equal = false
		}
	}
	for j := i; j < lim2; j++ {
		if byteAt(n, j) != 0 {
			return false
		}
	}
	if equal && longer < 0 {
		for ; i < lenM; i++ {
			if byteAt(m, i) != 0 {
				return true
			}
		}
	}
	return !equal
}

// lexobetter orders masks that don't refine each other: longer masks
// first, then by byte value.
func lexobetter(m, n []byte) bool {
	lm, ln := keyLen(m), keyLen(n)
	if lm != ln {
		return lm > ln
	}
	return bytes.Compare(m[:min(lm, len(m))], n[:min(ln, len(n))]) > 0
}

// satisfiesLeaf tests key against the leaf's key under its mask,
// starting at byte skip.
func satisfiesLeaf(key []byte, leaf *node, skip int) bool {
	length := min(keyLen(key), keyLen(leaf.key))
	mask := ones
	if leaf.mask != nil {
		mask = leaf.mask.bytes
		length = min(length, keyLen(mask))
	}
	for i := skip; i < length; i++ {
		if (byteAt(key, i)^byteAt(leaf.key, i))&byteAt(mask, i) != 0 {
			return false
		}
	}
	return true
}
