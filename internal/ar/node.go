package ar

import "github.com/google/uuid"

// Drawable is content that can render itself into a width x height cell area.
type Drawable interface {
	Draw(width, height int) string
}

// Node is an element of the scene graph. Sessions create one node per anchor;
// content controllers attach child nodes carrying drawables.
// Nodes are not safe for concurrent mutation.
type Node struct {
	ID       uuid.UUID
	Name     string
	Drawable Drawable

	parent   *Node
	children []*Node
}

// NewNode creates a detached node.
func NewNode(name string) *Node {
	return &Node{ID: uuid.New(), Name: name}
}

// Parent returns the node's parent, or nil when detached.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// AddChild attaches child, detaching it from any previous parent first.
func (n *Node) AddChild(child *Node) {
	if child == nil || child == n {
		return
	}
	child.RemoveFromParent()
	child.parent = n
	n.children = append(n.children, child)
}

// RemoveFromParent detaches the node. Detached nodes are left as is.
func (n *Node) RemoveFromParent() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// FirstDrawable returns the first drawable found depth-first, including n.
func (n *Node) FirstDrawable() Drawable {
	if n.Drawable != nil {
		return n.Drawable
	}
	for _, c := range n.children {
		if d := c.FirstDrawable(); d != nil {
			return d
		}
	}
	return nil
}

// ContentController is a pluggable content strategy for a tracked face.
type ContentController interface {
	// Name is shown in the UI when strategies are cycled.
	Name() string
	// NodeFor builds content for a newly tracked anchor. It may return nil.
	NodeFor(anchor *Anchor) *Node
	// ContentNode returns the node most recently built by NodeFor.
	ContentNode() *Node
	// DidUpdate refreshes contentNode for the anchor's latest state.
	DidUpdate(contentNode *Node, anchor *Anchor)
}
