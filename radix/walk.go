package radix

// Walk calls fn for every route in key order, duped-key chains most
// specific first. A non-nil error from fn stops the walk and is returned.
// fn may delete the route it is given, and no other.
func (h *Head) Walk(fn func(Entry) error) error {
	return h.walkFrom(h.top, nil, nil, fn)
}

// WalkFrom is Walk restricted to the routes whose keys agree with key
// on the bits set in mask.
func (h *Head) WalkFrom(key, mask []byte, fn func(Entry) error) error {
	nm := normalize(mask, h.skip())

	// find the smallest subtree covering key under mask
	rn, last := h.top, h.top
	for n := h.at(rn); n.kind == kindBranch; n = h.at(rn) {
		last = rn
		if n.bmask&byteAt(nm, n.off) == 0 {
			break
		}
		if n.bmask&byteAt(key, n.off) != 0 {
			rn = n.right
		} else {
			rn = n.left
		}
	}
	return h.walkFrom(last, key, nm, fn)
}

func (h *Head) walkFrom(last Ref, key, mask []byte, fn func(Entry) error) error {
	lastb := h.at(last).bit
	rn := last
	for h.at(rn).kind == kindBranch {
		rn = h.at(rn).left
	}
	for stopping := false; !stopping; {
		base := rn
		// if at right child go back up, otherwise go right
		for {
			p := h.at(rn).parent
			if h.at(p).right != rn || h.at(rn).flags&flagRoot != 0 {
				break
			}
			rn = p
			if h.at(rn).bit <= lastb {
				stopping = true
			}
		}
		// find the next leaf now since the next branch may vanish
		rn = h.at(h.at(rn).parent).right
		for h.at(rn).kind == kindBranch {
			rn = h.at(rn).left
		}
		next := rn

		if err := h.visit(base, key, mask, fn); err != nil {
			return err
		}
		if h.at(next).flags&flagRoot != 0 {
			if stopping {
				break
			}
			return h.visit(next, key, mask, fn)
		}
		rn = next
	}
	return nil
}

// visit hands fn the routes of the chain at base whose keys match key
// under mask.
func (h *Head) visit(base Ref, key, mask []byte, fn func(Entry) error) error {
	skip := h.skip()
	for base != nilRef {
		rn := base
		n := h.at(rn)
		base = n.dupedkey
		if n.flags&flagRoot != 0 || !matchesUnder(n.key, key, mask, skip) {
			continue
		}
		if err := fn(h.entry(rn)); err != nil {
			return err
		}
	}
	return nil
}

func matchesUnder(a, b, mask []byte, skip int) bool {
	for i := skip; i < len(mask); i++ {
		if (byteAt(a, i)^byteAt(b, i))&mask[i] != 0 {
			return false
		}
	}
	return true
}
