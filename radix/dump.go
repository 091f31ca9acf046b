package radix

import (
	"fmt"
	"io"
)

// DebugDump writes the tree to w, one node per line, with duped-key
// chains and mask annotations.
func (h *Head) DebugDump(w io.Writer) {
	h.debugDump(w, h.top, "T:", "")
}

func (h *Head) debugDump(w io.Writer, r Ref, tag, indent string) {
	n := h.at(r)
	if n.kind == kindLeaf {
		for x := r; x != nilRef; x = h.at(x).dupedkey {
			xn := h.at(x)
			if xn.flags&flagRoot != 0 {
				fmt.Fprintf(w, "%s%s ROOT key=%x\n", indent, tag, xn.key[:min(len(xn.key), 4)])
			} else {
				fmt.Fprintf(w, "%s%s %v pair=%v val=%v\n", indent, tag, xn, x.pair(), xn.val)
			}
			tag = "D:"
		}
		return
	}
	fmt.Fprintf(w, "%s%s %v%s\n", indent, tag, n, h.dumpMasks(n.mklist))
	h.debugDump(w, n.left, "L:", indent+"  ")
	h.debugDump(w, n.right, "R:", indent+"  ")
}

func (h *Head) dumpMasks(m *radixMask) (s string) {
	for ; m != nil; m = m.next {
		tag := "M"
		if m.flags&flagNormal != 0 {
			tag = "N"
		}
		s += fmt.Sprintf(" %s{bit=%v refs=%v mask=%x}", tag, m.bit, m.refs, h.maskOf(m).bytes)
	}
	return
}
