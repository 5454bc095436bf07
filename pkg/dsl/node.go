package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
)

var (
	// ErrNilChild is returned when attaching a nil node.
	ErrNilChild = errors.New("nil child")
	// ErrAlreadyAttached is returned when a node already has a parent.
	ErrAlreadyAttached = errors.New("node already attached")
	// ErrCycle is returned when a node would become its own ancestor.
	ErrCycle = errors.New("attach would create a cycle")
	// ErrRootAttach is returned when the root is attached below another node.
	ErrRootAttach = errors.New("root cannot be attached")
)

// Node is a state-to-be. It owns its children exclusively.
type Node struct {
	id       string
	parent   *Node
	children []*Node
	hooks    domain.Hooks
	root     bool
	errs     []error
}

// Option configures a Node at construction time.
type Option func(*Node)

// Enter sets the synchronous enter hook.
func Enter(fn domain.EnterFunc) Option {
	return func(n *Node) {
		n.hooks.OnEnter = fn
	}
}

// Exit sets the synchronous exit hook.
func Exit(fn domain.ExitFunc) Option {
	return func(n *Node) {
		n.hooks.OnExit = fn
	}
}

// EnterAsync sets the suspendable enter hook.
func EnterAsync(fn domain.EnterAsyncFunc) Option {
	return func(n *Node) {
		n.hooks.OnEnterAsync = fn
	}
}

// ExitAsync sets the suspendable exit hook.
func ExitAsync(fn domain.ExitAsyncFunc) Option {
	return func(n *Node) {
		n.hooks.OnExitAsync = fn
	}
}

// WithHooks sets all four hook slots at once.
func WithHooks(h domain.Hooks) Option {
	return func(n *Node) {
		n.hooks = h
	}
}

// State creates a detached node.
func State(id string, opts ...Option) *Node {
	n := &Node{id: id}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewRoot creates the reserved root node. Only the engine should call it.
func NewRoot() *Node {
	return &Node{id: domain.RootStateID, root: true}
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Parent returns the parent node, or nil when detached or root.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether n is the tree root.
func (n *Node) IsRoot() bool { return n.root }

// Hooks returns the hooks configured at construction.
func (n *Node) Hooks() domain.Hooks { return n.hooks }

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Errs returns the attach failures recorded by Add on this node.
func (n *Node) Errs() []error {
	out := make([]error, len(n.errs))
	copy(out, n.errs)
	return out
}

// Attach makes child the last child of n.
// It sets child's parent exactly once; a node can never be moved or attached twice.
func (n *Node) Attach(child *Node) error {
	switch {
	case child == nil:
		return fmt.Errorf("attach to %q: %w", n.id, ErrNilChild)
	case child.root:
		return fmt.Errorf("attach to %q: %w", n.id, ErrRootAttach)
	case child.parent != nil:
		return fmt.Errorf("attach %q to %q (owned by %q): %w", child.id, n.id, child.parent.id, ErrAlreadyAttached)
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("attach %q to %q: %w", child.id, n.id, ErrCycle)
		}
	}

	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// Add attaches every child in order and returns n for chaining.
// Failures are recorded on n and surface when the tree is frozen.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if err := n.Attach(c); err != nil {
			n.errs = append(n.errs, err)
		}
	}
	return n
}

// Find returns the first node with the given id in breadth-first order, or nil.
func (n *Node) Find(id string) *Node {
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.id == id {
			return cur
		}
		queue = append(queue, cur.children...)
	}
	return nil
}

// Walk visits n and its descendants in pre-order (parent first, children in order).
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}
