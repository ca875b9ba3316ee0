package glslpp

// branchNode is a conditional-compilation scope. The current scope is the
// one found by following the last child from the root.
type branchNode struct {
	active        bool // this scope and all its ancestors are satisfied.
	anyChildTaken bool // some child branch at this level already evaluated true.
	children      []*branchNode
	parent        *branchNode
}

// BranchTree tracks nested #if/#elif/#else/#endif scopes. Within one
// if-chain only the first branch whose condition holds is active.
// The zero value is not ready for use; call NewBranchTree.
type BranchTree struct {
	root *branchNode
}

// NewBranchTree returns a tree with a single active root scope.
func NewBranchTree() *BranchTree {
	bt := &BranchTree{}
	bt.Reset()
	return bt
}

// Reset discards all scopes leaving only the active root.
func (bt *BranchTree) Reset() {
	bt.root = &branchNode{active: true}
}

func (bt *BranchTree) current() *branchNode {
	n := bt.root
	for len(n.children) > 0 {
		n = n.children[len(n.children)-1]
	}
	return n
}

// Open starts a new #if scope nested in the current scope.
func (bt *BranchTree) Open(cond bool) {
	cur := bt.current()
	cur.children = append(cur.children, &branchNode{
		active: cond && cur.active,
		parent: cur,
	})
	if cond {
		cur.anyChildTaken = true
	}
}

// Extend appends an #elif (or #else, with cond=true) sibling to the current scope.
// It is a no-op at top level.
func (bt *BranchTree) Extend(cond bool) {
	parent := bt.current().parent
	if parent == nil {
		return
	}
	active := !parent.anyChildTaken && cond && parent.active
	if cond {
		parent.anyChildTaken = true
	}
	parent.children = append(parent.children, &branchNode{
		active: active,
		parent: parent,
	})
}

// Close ends the current if-chain, making its enclosing scope current again.
// It is a no-op at top level.
func (bt *BranchTree) Close() {
	parent := bt.current().parent
	if parent == nil {
		return
	}
	parent.children = parent.children[:0]
	parent.anyChildTaken = false
}

// Active reports whether lines in the current scope are kept.
func (bt *BranchTree) Active() bool {
	return bt.current().active
}

// Depth returns the nesting depth of the current scope. The root has depth 1.
func (bt *BranchTree) Depth() int {
	depth := 1
	for n := bt.root; len(n.children) > 0; n = n.children[len(n.children)-1] {
		depth++
	}
	return depth
}
