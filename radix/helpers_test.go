package radix

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aglyzov/go-radix/inet"
)

func pfx(s string) (key, mask []byte) {
	return inet.Prefix(netip.MustParsePrefix(s))
}

func addr(s string) []byte {
	return inet.Key(netip.MustParseAddr(s))
}

func addRoute(t *testing.T, h *Head, s string, val any) Pair {
	t.Helper()

	key, mask := pfx(s)
	p, err := h.AddRoute(key, mask, val, h.AllocPair(), 0)
	require.NoError(t, err, s)

	return p
}

func prefixOf(e Entry) string {
	p, ok := inet.ToPrefix(e.Key, e.Mask)
	if !ok {
		return "?"
	}
	return p.String()
}

func matchVal(h *Head, s string) any {
	e, ok := h.Match(addr(s))
	if !ok {
		return nil
	}
	return e.Val
}

func walkVals(t *testing.T, h *Head) (vals []any) {
	t.Helper()

	require.NoError(t, h.Walk(func(e Entry) error {
		vals = append(vals, e.Val)
		return nil
	}))
	return
}

// checkTree verifies parent links, annotation placement and reference
// counts of the whole table.
func checkTree(t *testing.T, h *Head) {
	t.Helper()

	type cite struct {
		anchor Ref
		refs   int
	}
	var (
		cites = map[*radixMask]*cite{}
		heads = map[Ref]Ref{} // chain member -> chain head
		stack = []Ref{h.top}
	)
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := h.at(r)
		require.NotZero(t, n.flags&flagActive, "inactive node %v", n)

		if n.kind == kindLeaf {
			var prev *node
			for x := r; x != nilRef; x = h.at(x).dupedkey {
				heads[x] = r
				xn := h.at(x)
				switch {
				case prev == nil || prev.flags&flagRoot != 0:
				case prev.mask == xn.mask:
					require.True(t, h.cfg.Multipath, "duplicate mask at %v", xn)
					require.LessOrEqual(t, prev.prio, xn.prio, "priority order at %v", xn)
				default:
					require.True(t, moreSpecific(prev, xn), "chain order at %v", xn)
				}
				prev = xn
			}
			continue
		}
		last := maxKeyLen * 8
		for m := n.mklist; m != nil; m = m.next {
			require.LessOrEqual(t, m.bit, last, "annotation order at %v", n)
			last = m.bit
			cites[m] = &cite{anchor: r}
		}
		for _, c := range []Ref{n.left, n.right} {
			require.Equal(t, r, h.at(c).parent, "parent of %v", h.at(c))
			if cn := h.at(c); cn.kind == kindBranch {
				require.Greater(t, cn.bit, n.bit)
			}
			stack = append(stack, c)
		}
	}

	size := 0
	for x, head := range heads {
		xn := h.at(x)
		if xn.flags&flagRoot != 0 {
			continue
		}
		size++
		parent := h.at(head).parent
		if xn.mask == nil || xn.mbit > h.at(parent).bit {
			require.Nil(t, xn.mklist, "stray annotation of %v", xn)
			continue
		}
		m := xn.mklist
		require.NotNil(t, m, "missing annotation of %v", xn)
		c, ok := cites[m]
		require.True(t, ok, "annotation of %v is not on the tree", xn)
		require.Equal(t, h.anchor(parent, xn.mbit), c.anchor, "anchor of %v", xn)
		require.Same(t, xn.mask, h.maskOf(m))
		c.refs++
	}
	for m, c := range cites {
		require.Equal(t, c.refs, m.refs, "refs of annotation at bit %d", m.bit)
	}
	require.Equal(t, len(cites), h.rm.inUse)
	require.Equal(t, size, h.Len())
}
