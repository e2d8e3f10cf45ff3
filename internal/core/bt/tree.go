package bt

import "errors"

var ErrNilRoot = errors.New("behavior tree root is nil")

// Tree is an immutable behavior tree.
type Tree struct {
	root Node
}

func NewTree(root Node) (*Tree, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	return &Tree{root: root}, nil
}

func (t *Tree) Root() Node { return t.root }

// Evaluate runs one tick from the root.
func (t *Tree) Evaluate(ac *ActionContext, cc *ConditionContext) NodeState {
	return t.root.Evaluate(ac, cc)
}

// Walk visits every node depth-first, parents before children.
func (t *Tree) Walk(fn func(depth int, n Node)) {
	var walk func(int, Node)
	walk = func(depth int, n Node) {
		fn(depth, n)
		if c, ok := n.(Composite); ok {
			for _, ch := range c.Children() {
				walk(depth+1, ch)
			}
		}
	}
	walk(0, t.root)
}
