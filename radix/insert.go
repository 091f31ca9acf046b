package radix

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// insert links the leaf of p for key into the tree. When the key is
// already present nothing changes and the head of its duped-key chain
// is returned with dup set.
func (h *Head) insert(key []byte, p Pair) (tt Ref, dup bool) {
	top := h.top
	t := h.search(key, top)
	// find the first bit at which key and the leaf's key differ
	b, same := firstDiffBit(key, h.at(t).key, h.at(top).off, keyLen(key))
	if same {
		return t, true
	}
	// walk for best insertion node
	var parent Ref
	x := top
	for {
		parent = x
		n := h.at(x)
		if n.bmask&byteAt(key, n.off) != 0 {
			x = n.right
		} else {
			x = n.left
		}
		if xn := h.at(x); xn.kind == kindLeaf || xn.bit >= b {
			break
		}
	}
	tt, t = h.newPair(key, b, p)
	h.replaceChild(parent, x, t)
	h.at(x).parent = t
	tn := h.at(t)
	tn.parent = parent
	if byteAt(key, tn.off)&tn.bmask == 0 {
		tn.right = x
	} else {
		tn.right = tt
		tn.left = x
	}
	return tt, false
}

// AddRoute inserts a route for key with an optional mask (nil makes a
// host route) into the storage of pair p, which must come from
// AllocPair and not be linked. Priority orders multipath entries, lower
// values first.
func (h *Head) AddRoute(key, mask []byte, val any, p Pair, prio uint8) (Pair, error) {
	if !h.pool.valid(p) || p < 2 || h.active(p) {
		return NoPair, errors.Wrapf(ErrPairInUse, "pair %d", p)
	}
	var netmask *Mask
	if mask != nil {
		m, err := h.masks.Intern(mask, h.skip(), false)
		if err != nil {
			return NoPair, err
		}
		netmask = m
	}
	h.pool.clear(p)

	// deal with duplicated keys: attach the leaf to the previous instance
	saved, dup := h.insert(key, p)
	tt := saved
	if dup {
		tt = p.leaf()
	}
	ttn := h.at(tt)
	ttn.key = key
	ttn.flags = flagActive
	ttn.val = val
	ttn.prio = prio
	if netmask != nil {
		ttn.mask = netmask
		ttn.mbit = netmask.bit
		if netmask.normal {
			ttn.flags |= flagNormal
		}
	}
	if dup {
		head, err := h.linkDup(saved, tt)
		if err != nil {
			h.pool.clear(p)
			h.masks.drop(netmask)
			return NoPair, errors.Wrapf(err, "key %x", key)
		}
		saved = head
	}

	t := h.at(saved).parent
	if need := h.masksNeeded(saved, tt, t, dup); need > 0 {
		if avail := h.rm.avail(); avail >= 0 && avail < need {
			h.log.Warn("mask annotations exhausted", zap.Binary("key", key), zap.Int("need", need))
			err := h.unlink(tt, saved)
			h.pool.clear(p)
			h.masks.drop(netmask)
			if err != nil {
				return NoPair, err
			}
			return NoPair, errors.Wrapf(ErrNoMemory, "key %x", key)
		}
	}
	if !dup {
		h.promoteBelow(saved, t)
	}
	h.masks.retain(netmask)
	h.size++
	if netmask != nil {
		h.hoist(tt, t)
	}
	return p, nil
}

// linkDup puts tt into the duped-key chain starting at head: most
// specific masks first, multipath entries by priority. It returns the
// head of the chain, which changes when tt goes first.
func (h *Head) linkDup(head, tt Ref) (Ref, error) {
	ttn := h.at(tt)
	first, front := head, nilRef
	// the sentinel always stays in front
	if h.at(head).flags&flagRoot != 0 {
		first, front = h.at(head).dupedkey, head
	}
	// an equal mask may sit anywhere in the chain
	prev := front
	for x := first; x != nilRef; prev, x = x, h.at(x).dupedkey {
		if h.at(x).mask != ttn.mask {
			continue
		}
		if !h.cfg.Multipath {
			return head, ErrExists
		}
		slot, err := h.multipathSlot(prev, x, ttn)
		if err != nil {
			return head, err
		}
		return h.splice(head, slot, tt), nil
	}
	prev = front
	for x := first; x != nilRef && !moreSpecific(ttn, h.at(x)); x = h.at(x).dupedkey {
		prev = x
	}
	return h.splice(head, prev, tt), nil
}

// moreSpecific orders duped-key chains: host routes first, then by
// decreasing mask index, equal indexes by mask bytes.
func moreSpecific(a, b *node) bool {
	switch {
	case a.mask == nil:
		return true
	case b.mask == nil:
		return false
	case a.mbit != b.mbit:
		return a.mbit > b.mbit
	}
	return Refines(a.mask.bytes, b.mask.bytes) || lexobetter(a.mask.bytes, b.mask.bytes)
}

// splice links tt after prev, or at the head of the chain taking over
// its tree position when prev is nilRef. It returns the chain head.
func (h *Head) splice(head, prev, tt Ref) Ref {
	ttn := h.at(tt)
	if prev == nilRef {
		hn := h.at(head)
		ttn.dupedkey = head
		ttn.parent = hn.parent
		h.replaceChild(hn.parent, head, tt)
		hn.parent = nilRef
		return tt
	}
	pn := h.at(prev)
	ttn.dupedkey = pn.dupedkey
	ttn.parent = nilRef
	pn.dupedkey = tt
	return head
}

// multipathSlot returns the chain member tt is to follow within the
// multipath group starting at x, or nilRef for the head of the chain.
// Entries sharing the priority of tt are ECMP siblings and tt goes to
// the middle of them, so most existing flows keep their path.
func (h *Head) multipathSlot(prev, x Ref, ttn *node) (Ref, error) {
	group := ttn.mask
	for x != nilRef && h.at(x).mask == group && h.at(x).prio < ttn.prio {
		prev, x = x, h.at(x).dupedkey
	}
	same := 0
	for y := x; y != nilRef; y = h.at(y).dupedkey {
		yn := h.at(y)
		if yn.mask != group || yn.prio != ttn.prio {
			break
		}
		if h.cfg.SameRoute(yn.val, ttn.val) {
			return prev, ErrExists
		}
		same++
	}
	for i := 0; i < (same+1)/2; i++ {
		prev, x = x, h.at(x).dupedkey
	}
	return prev, nil
}

// masksNeeded returns an upper bound of the annotations AddRoute will
// allocate for tt, with t the parent of the chain head.
func (h *Head) masksNeeded(head, tt, t Ref, dup bool) int {
	need := 0
	tn := h.at(t)
	if !dup {
		x := tn.left
		if x == head {
			x = tn.right
		}
		if h.at(x).kind == kindLeaf {
			for ; x != nilRef; x = h.at(x).dupedkey {
				if xn := h.at(x); xn.mask != nil && xn.mbit <= tn.bit && xn.mklist == nil {
					need++
				}
			}
		}
	}
	if ttn := h.at(tt); ttn.mask != nil && ttn.mbit <= tn.bit {
		need++
	}
	return need
}

// promoteBelow moves onto the new branch t the annotations of routes
// below it that may now be hoisted to t.
func (h *Head) promoteBelow(head, t Ref) {
	tn := h.at(t)
	x := tn.left
	if x == head {
		x = tn.right
	}
	if xn := h.at(x); xn.kind == kindLeaf {
		mp := &tn.mklist
		var last *radixMask
		for ; x != nilRef; x = h.at(x).dupedkey {
			xn := h.at(x)
			if xn.mask == nil || xn.mbit > tn.bit || xn.mklist != nil {
				continue
			}
			if last != nil && h.maskOf(last) == xn.mask {
				// multipath members share one annotation
				last.refs++
				xn.mklist = last
				continue
			}
			m := h.newRadixMask(x, nil)
			if m == nil {
				return
			}
			*mp = m
			mp = &m.next
			last = m
		}
	} else if xn.mklist != nil {
		// skip over masks whose index is > that of new node
		mp := &xn.mklist
		for *mp != nil && (*mp).bit > tn.bit {
			mp = &(*mp).next
		}
		tn.mklist = *mp
		*mp = nil
	}
}

// hoist adds the mask of tt to the highest ancestor of t it may be
// lifted to, keeping the list in the same order as duped-key chains.
func (h *Head) hoist(tt, t Ref) {
	ttn := h.at(tt)
	b := ttn.mbit
	if b > h.at(t).bit {
		return // can't lift at all
	}
	var x Ref
	for {
		x = t
		t = h.at(t).parent
		if b > h.at(t).bit || x == h.top {
			break
		}
	}
	mp := &h.at(x).mklist
	for m := *mp; m != nil; mp, m = &m.next, m.next {
		if m.bit > b {
			continue
		}
		if m.bit < b {
			break
		}
		mmask := h.maskOf(m)
		if m.flags&flagNormal != 0 && ttn.flags&flagNormal != 0 {
			ln := h.at(m.leaf)
			if !h.cfg.Multipath || mmask != ttn.mask || !h.sameKey(ln.key, ttn.key) {
				h.log.Warn("non-unique normal route, mask not entered", zap.Binary("key", ttn.key))
				return
			}
		}
		if mmask == ttn.mask {
			m.refs++
			ttn.mklist = m
			if m.flags&flagNormal != 0 && ttn.dupedkey == m.leaf {
				// tt now heads the multipath group
				m.leaf = tt
			}
			return
		}
		if Refines(ttn.mask.bytes, mmask.bytes) || lexobetter(ttn.mask.bytes, mmask.bytes) {
			break
		}
	}
	if m := h.newRadixMask(tt, *mp); m != nil {
		*mp = m
	}
}

func (h *Head) newRadixMask(tt Ref, next *radixMask) *radixMask {
	ttn := h.at(tt)
	m := h.rm.get()
	if m == nil {
		h.log.Error("mask for route not entered", zap.Binary("key", ttn.key))
		return nil
	}
	m.bit = ttn.mbit
	m.flags = ttn.flags & flagNormal
	if m.flags != 0 {
		m.leaf = tt
	} else {
		m.leaf = nilRef
		m.mask = ttn.mask
	}
	m.next = next
	m.refs = 1
	ttn.mklist = m
	return m
}

// sameKey compares the significant bytes of key with other.
func (h *Head) sameKey(key, other []byte) bool {
	_, same := firstDiffBit(key, other, h.skip(), keyLen(key))
	return same
}
