package epn

import (
	"errors"
	"fmt"
)

// Sentinel errors for network construction. The builder records them on the
// Network; Validate and Start report them.
var (
	// ErrNoRoots indicates Start was called on a network without sources.
	ErrNoRoots = errors.New("network has no root sources")

	// ErrUnterminatedBranch indicates an outlet that nothing consumes.
	ErrUnterminatedBranch = errors.New("unterminated branch")

	// ErrForeignNode indicates flows of two different networks were combined.
	ErrForeignNode = errors.New("flow belongs to another network")

	// ErrBranchConsumed indicates a join over a branch without an open tail.
	ErrBranchConsumed = errors.New("branch already consumed")

	// ErrBranchType indicates a join over branches of different element types.
	ErrBranchType = errors.New("branch element types differ")

	// ErrStageReused indicates a flow was continued more than once.
	ErrStageReused = errors.New("flow already continued")

	// ErrInvalidTransition indicates a split continuation used out of order.
	ErrInvalidTransition = errors.New("invalid builder transition")
)

// Sentinel errors for running a network.
var (
	// ErrAlreadyStarted indicates Start was called a second time.
	ErrAlreadyStarted = errors.New("network already started")

	// ErrNilContext indicates Start was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// NodeError describes a builder misuse at a specific node.
type NodeError struct {
	// Node is the label of the node involved, empty if none was created.
	Node string
	// Op is the builder operation ("filter", "join", ...).
	Op string
	// Err is the underlying sentinel.
	Err error
}

func (e *NodeError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// RootError wraps the failure of one root source during Start.
type RootError struct {
	// Root is the label of the root node.
	Root string
	// Err is the error returned by the source, or a *PanicError.
	Err error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("root %s: %v", e.Root, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised while a root was driven, including
// panics from user predicates, functions, selectors and combiners.
type PanicError struct {
	// Node is the label of the root being driven.
	Node string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}
