package radix

// --- NodePool ---

// NodePool is the arena holding node pairs. A pair occupies two
// consecutive slots: the leaf at 2*pair and the branch at 2*pair+1.
type NodePool struct {
	Nodes   []node
	FreeIdx []Pair
}

func NewNodePool(preAlloc int) *NodePool {
	if preAlloc <= 0 {
		preAlloc = 64
	}
	return &NodePool{
		Nodes:   make([]node, 0, 2*preAlloc),
		FreeIdx: make([]Pair, 0, 21),
	}
}

// GetPair allocates a new pair (if necessary) and returns its handle.
func (p *NodePool) GetPair() (pair Pair) {
	if l := len(p.FreeIdx); l > 0 {
		pair = p.FreeIdx[l-1]
		p.FreeIdx = p.FreeIdx[:l-1]
	} else {
		p.Nodes = append(p.Nodes, node{}, node{})
		pair = Pair(len(p.Nodes)/2 - 1)
	}
	p.clear(pair)
	return
}

// PutPair stores a pair in a free-list for a re-use
// by subsequent GetPair calls.
func (p *NodePool) PutPair(pair Pair) {
	p.clear(pair)
	p.FreeIdx = append(p.FreeIdx, pair)
}

// Len returns the number of pairs handed out and not yet returned.
func (p *NodePool) Len() int {
	return len(p.Nodes)/2 - len(p.FreeIdx)
}

// Reset forgets about stored pairs and free-list indices (not freeing the memory).
func (p *NodePool) Reset() {
	p.Nodes = p.Nodes[:0]
	p.FreeIdx = p.FreeIdx[:0]
}

func (p *NodePool) valid(pair Pair) bool {
	return pair >= 0 && int(pair.branch()) < len(p.Nodes)
}

func (p *NodePool) clear(pair Pair) {
	p.Nodes[pair.leaf()] = node{kind: kindLeaf, parent: nilRef, left: nilRef, right: nilRef, dupedkey: nilRef}
	p.Nodes[pair.branch()] = node{kind: kindBranch, parent: nilRef, left: nilRef, right: nilRef, dupedkey: nilRef}
}

// --- radix mask descriptors ---

// maskPool hands out radixMask descriptors. A positive limit bounds the
// number of descriptors in use at once.
type maskPool struct {
	limit int
	inUse int
	free  []*radixMask
}

// avail returns how many descriptors can still be taken, -1 if unbounded.
func (mp *maskPool) avail() int {
	if mp.limit <= 0 {
		return -1
	}
	return mp.limit - mp.inUse
}

func (mp *maskPool) get() *radixMask {
	if mp.limit > 0 && mp.inUse >= mp.limit {
		return nil
	}
	mp.inUse++
	if l := len(mp.free); l > 0 {
		m := mp.free[l-1]
		mp.free = mp.free[:l-1]
		return m
	}
	return &radixMask{}
}

func (mp *maskPool) put(m *radixMask) {
	*m = radixMask{}
	mp.inUse--
	mp.free = append(mp.free, m)
}
