// Package domain holds the node tree model, its invariants and domain events.
//
// Import Path: nodetree.io/nodetree/internal/domain
package domain

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// RootName is the name of the single parentless node.
const RootName = "Root"

// Name length bounds, counted in runes.
const (
	NameMinLength = 5
	NameMaxLength = 255
)

// Store-level sentinels. The service layer maps them to application errors.
var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrNameTaken       = errors.New("node name already taken")
	ErrRootProtected   = errors.New("root node is protected")
	ErrLeafNode        = errors.New("node cannot have children")
	ErrWindowExhausted = errors.New("window has no room for unique names")
	ErrInvalidName     = errors.New("invalid node name")
	ErrInvalidWindow   = errors.New("invalid number window")
)

// Node is a vertex of the tree. ParentID is nil only for Root.
type Node struct {
	ID              int64
	Name            string
	ParentID        *int64
	CanHaveChildren bool
	MinNum          int
	MaxNum          int
}

// IsRoot reports whether n is the root node.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil && n.Name == RootName
}

// Window returns the node's numeric range.
func (n *Node) Window() Window {
	return Window{Min: n.MinNum, Max: n.MaxNum}
}

// SetWindow replaces the node's numeric range.
func (n *Node) SetWindow(w Window) {
	n.MinNum = w.Min
	n.MaxNum = w.Max
}

// Window is the inclusive integer range [Min, Max] sub-node names are drawn from.
type Window struct {
	Min int
	Max int
}

// Size is the number of integers in the window.
func (w Window) Size() int {
	if w.Max < w.Min {
		return 0
	}
	return w.Max - w.Min + 1
}

// Contains reports whether v lies within the window.
func (w Window) Contains(v int) bool {
	return v >= w.Min && v <= w.Max
}

// smallintRange is the value range of the min_num and max_num columns.
var smallintRange = Window{Min: math.MinInt16, Max: math.MaxInt16}

// Validate checks min < max and that both bounds fit a smallint column.
func (w Window) Validate() error {
	if !smallintRange.Contains(w.Min) || !smallintRange.Contains(w.Max) {
		return fmt.Errorf("%w: bounds must be within [%d, %d]", ErrInvalidWindow, math.MinInt16, math.MaxInt16)
	}
	if w.Min >= w.Max {
		return fmt.Errorf("%w: min_num %d must be lower than max_num %d", ErrInvalidWindow, w.Min, w.Max)
	}
	return nil
}

// ValidateName checks the public naming rules.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < NameMinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidName, NameMinLength)
	}
	if n > NameMaxLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidName, NameMaxLength)
	}
	return nil
}

// ChildBuilder produces the nodes that replace a parent's children.
type ChildBuilder func(parent Node) ([]Node, error)
