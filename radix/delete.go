package radix

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Delete removes the route with exactly key and mask and hands its pair
// back to the caller. A nil mask removes the first route of the key: the
// host route when there is one. In multipath tables sel names the group
// member to remove, NoPair removes the most preferred one.
//
// Corruption found once the route is out of the tree is reported as
// ErrInconsistent along with the removed entry.
func (h *Head) Delete(key, mask []byte, sel Pair) (Entry, error) {
	saved := h.search(key, h.top)
	if !h.sameKey(key, h.at(saved).key) {
		return Entry{}, errors.Wrapf(ErrNotFound, "key %x", key)
	}
	tt, err := h.chainEntry(saved, mask)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "key %x mask %x", key, mask)
	}
	if sel != NoPair {
		group := h.at(tt).mask
		for y := tt; ; y = h.at(y).dupedkey {
			if y == nilRef || h.at(y).mask != group {
				return Entry{}, errors.Wrapf(ErrNotFound, "key %x pair %d", key, sel)
			}
			if y == sel.leaf() {
				tt = y
				break
			}
		}
	}
	if err := h.unannotate(tt, saved); err != nil {
		return Entry{}, err
	}
	e := h.entry(tt)
	netmask := h.at(tt).mask
	err = h.unlink(tt, saved)
	h.pool.clear(tt.pair())
	h.masks.Release(netmask)
	h.size--
	return e, err
}

// chainEntry finds the entry of the duped-key chain at saved carrying
// mask, or its first entry for a nil mask.
func (h *Head) chainEntry(saved Ref, mask []byte) (Ref, error) {
	tt := saved
	if h.at(tt).flags&flagRoot != 0 {
		tt = h.at(tt).dupedkey
	}
	if mask == nil {
		if tt == nilRef {
			return nilRef, ErrNotFound
		}
		return tt, nil
	}
	netmask, _ := h.masks.Intern(mask, h.skip(), true)
	if netmask == nil {
		return nilRef, ErrNotFound
	}
	for ; tt != nilRef; tt = h.at(tt).dupedkey {
		if h.at(tt).mask == netmask {
			return tt, nil
		}
	}
	return nilRef, ErrNotFound
}

// anchor climbs from t to the highest ancestor a mask with index b may
// be hoisted to.
func (h *Head) anchor(t Ref, b int) Ref {
	var x Ref
	for {
		x = t
		t = h.at(t).parent
		if b > h.at(t).bit || x == h.top {
			return x
		}
	}
}

// unannotate drops the mask annotation tt is cited by, if any. saved is
// the head of the duped-key chain of tt.
func (h *Head) unannotate(tt, saved Ref) error {
	ttn := h.at(tt)
	m := ttn.mklist
	if ttn.mask == nil || m == nil {
		return nil
	}
	if h.maskOf(m) != ttn.mask {
		return h.corrupt("inconsistent annotation", ttn.key)
	}
	if m.refs > 1 {
		if m.flags&flagNormal != 0 && m.leaf == tt {
			// hand the annotation over to the next multipath member
			next := ttn.dupedkey
			if next == nilRef || h.at(next).mklist != m {
				return h.corrupt("inconsistent duped-key list", ttn.key)
			}
			m.leaf = next
		}
		m.refs--
		ttn.mklist = nil
		return nil
	}
	if m.flags&flagNormal != 0 && m.leaf != tt {
		return h.corrupt("inconsistent normal annotation", ttn.key)
	}
	t := h.at(saved).parent
	if ttn.mbit > h.at(t).bit {
		return h.corrupt("annotation of a route that can't be lifted", ttn.key)
	}
	x := h.anchor(t, ttn.mbit)
	for mp := &h.at(x).mklist; *mp != nil; mp = &(*mp).next {
		if *mp == m {
			*mp = m.next
			h.rm.put(m)
			ttn.mklist = nil
			return nil
		}
	}
	return h.corrupt("couldn't find our annotation", ttn.key)
}

// unlink takes leaf tt out of the tree, saved being the head of its
// duped-key chain. Both slots of the pair of tt are free afterwards.
func (h *Head) unlink(tt, saved Ref) error {
	ttn := h.at(tt)
	if dupedkey := h.at(saved).dupedkey; dupedkey != nilRef {
		var x Ref
		if tt == saved {
			// remove from head of chain
			x = dupedkey
			t := ttn.parent
			h.at(x).parent = t
			h.replaceChild(t, tt, x)
		} else {
			// find node in front of tt on the chain
			x = saved
			p := saved
			for p != nilRef && h.at(p).dupedkey != tt {
				p = h.at(p).dupedkey
			}
			if p != nilRef {
				h.at(p).dupedkey = ttn.dupedkey
			} else {
				h.log.Error("couldn't find us in the duped-key chain", zap.Binary("key", ttn.key))
			}
		}
		// the branch of tt may still be in use: move it over to x
		if tb := tt.pair().branch(); h.at(tb).flags&flagActive != 0 {
			h.relocate(tb, x.pair().branch())
		}
		h.deactivate(tt)
		return nil
	}

	t := ttn.parent
	tn := h.at(t)
	x := tn.left
	if x == tt {
		x = tn.right
	}
	p := tn.parent
	h.replaceChild(p, t, x)
	h.at(x).parent = p

	// demote routes attached to us
	var err error
	if tn.mklist != nil {
		err = h.demote(tn.mklist, x)
		tn.mklist = nil
	}

	// we may be holding an active branch of the tree
	if tb := tt.pair().branch(); t != tb {
		h.relocate(tb, t)
	}
	h.deactivate(tt)
	return err
}

// demote hands the annotations of a removed branch down to x, which
// took its place.
func (h *Head) demote(ml *radixMask, x Ref) error {
	xn := h.at(x)
	if xn.kind == kindBranch {
		mp := &xn.mklist
		for *mp != nil {
			mp = &(*mp).next
		}
		*mp = ml
		return nil
	}
	// If there are any key,mask pairs in a sibling duped-key chain,
	// some subset will appear sorted in the same order on our list.
	m := ml
	for y := x; m != nil && y != nilRef; y = h.at(y).dupedkey {
		yn := h.at(y)
		if yn.mklist != m {
			continue
		}
		yn.mklist = nil
		if m.refs--; m.refs > 0 {
			continue
		}
		mm := m.next
		h.rm.put(m)
		m = mm
	}
	if m == nil {
		return nil
	}
	err := h.corrupt("orphaned mask", xn.key)
	// nothing anchors them anymore
	for m != nil {
		for y := x; y != nilRef; y = h.at(y).dupedkey {
			if yn := h.at(y); yn.mklist == m {
				yn.mklist = nil
			}
		}
		mm := m.next
		h.rm.put(m)
		m = mm
	}
	return err
}

func (h *Head) deactivate(tt Ref) {
	h.at(tt).flags &^= flagActive
	h.at(tt.pair().branch()).flags &^= flagActive
}
