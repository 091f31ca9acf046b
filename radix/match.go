package radix

import "math/bits"

// Match returns the most specific route covering key. Host routes win
// over nets; among multipath entries the most preferred one is returned.
func (h *Head) Match(key []byte) (Entry, bool) {
	if r := h.match(key); r != nilRef {
		return h.entry(r), true
	}
	return Entry{}, false
}

// MatchAll returns the best match along with the rest of its multipath
// group, in priority order.
func (h *Head) MatchAll(key []byte) []Entry {
	r := h.match(key)
	if r == nilRef {
		return nil
	}
	var group []Entry
	mask := h.at(r).mask
	for ; r != nilRef && h.at(r).mask == mask; r = h.at(r).dupedkey {
		group = append(group, h.entry(r))
	}
	return group
}

func (h *Head) match(key []byte) Ref {
	top := h.top
	t := h.search(key, top)
	tn := h.at(t)

	// See if we match exactly as a host destination, or at least learn
	// how many bits match. Checking no further than the mask of the leaf
	// is enough: the leaf is the most specific one anyway.
	vlen := keyLen(key)
	if tn.mask != nil {
		vlen = keyLen(tn.mask.bytes)
	}
	i, d := h.at(top).off, byte(0)
	for ; i < vlen; i++ {
		if d = byteAt(key, i) ^ byteAt(tn.key, i); d != 0 {
			break
		}
	}
	if i >= vlen {
		if tn.flags&flagRoot == 0 {
			return t
		}
		// never return the sentinel itself, backtrack past it instead
		if tn.dupedkey != nilRef {
			return tn.dupedkey
		}
	}
	matchedOff := i
	b := i<<3 + bits.LeadingZeros8(d)

	// if there is a host route in a duped-key chain, it will be first
	saved := t
	if tn.mask == nil {
		t = tn.dupedkey
	}
	for ; t != nilRef; t = h.at(t).dupedkey {
		// even if we don't match exactly as a host, we may match
		// if the leaf we wound up at is a route to a net
		n := h.at(t)
		if n.flags&flagNormal != 0 {
			if b >= n.mbit {
				return t
			}
		} else if satisfiesLeaf(key, n, matchedOff) {
			return t
		}
	}

	// start searching up the tree
	t = saved
	for {
		t = h.at(t).parent
		tn := h.at(t)
		for m := tn.mklist; m != nil; m = m.next {
			if m.flags&flagNormal != 0 {
				if b >= m.bit {
					return m.leaf
				}
				continue
			}
			off := min(tn.off, matchedOff)
			x := h.searchMasked(key, m.mask.bytes, t)
			for x != nilRef && h.at(x).mask != m.mask {
				x = h.at(x).dupedkey
			}
			if x != nilRef && satisfiesLeaf(key, h.at(x), off) {
				return x
			}
		}
		if t == top {
			return nilRef
		}
	}
}

// Lookup returns the route with exactly key and mask. A nil mask
// returns the first route of the key: the host route when there is one.
func (h *Head) Lookup(key, mask []byte) (Entry, bool) {
	if r := h.lookup(key, mask); r != nilRef {
		return h.entry(r), true
	}
	return Entry{}, false
}

func (h *Head) lookup(key, mask []byte) Ref {
	x := h.search(key, h.top)
	if !h.sameKey(key, h.at(x).key) {
		return nilRef
	}
	r, _ := h.chainEntry(x, mask)
	return r
}
