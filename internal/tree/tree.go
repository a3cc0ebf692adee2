// Package tree renders nodes and their descendants as nested documents.
//
// Import Path: nodetree.io/nodetree/internal/tree
package tree

import (
	"encoding/json"
	"sort"

	"nodetree.io/nodetree/internal/domain"
)

// Document is the serialized form of a node and its subtree.
//
// Children is only rendered when CanHaveChildren is true, as an empty array
// when the node has none.
type Document struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	MinNum          int        `json:"min_num"`
	MaxNum          int        `json:"max_num"`
	ParentID        *int64     `json:"parent_id"`
	CanHaveChildren bool       `json:"can_have_children"`
	Children        []Document `json:"children,omitempty"`
}

type documentJSON struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	MinNum          int        `json:"min_num"`
	MaxNum          int        `json:"max_num"`
	ParentID        *int64     `json:"parent_id"`
	CanHaveChildren bool       `json:"can_have_children"`
	Children        []Document `json:"children"`
}

type leafJSON struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MinNum          int    `json:"min_num"`
	MaxNum          int    `json:"max_num"`
	ParentID        *int64 `json:"parent_id"`
	CanHaveChildren bool   `json:"can_have_children"`
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	if !d.CanHaveChildren {
		return json.Marshal(leafJSON{
			ID:              d.ID,
			Name:            d.Name,
			MinNum:          d.MinNum,
			MaxNum:          d.MaxNum,
			ParentID:        d.ParentID,
			CanHaveChildren: false,
		})
	}
	children := d.Children
	if children == nil {
		children = []Document{}
	}
	return json.Marshal(documentJSON{
		ID:              d.ID,
		Name:            d.Name,
		MinNum:          d.MinNum,
		MaxNum:          d.MaxNum,
		ParentID:        d.ParentID,
		CanHaveChildren: true,
		Children:        children,
	})
}

// ChildSource yields the direct children of a node in insertion order.
type ChildSource interface {
	ChildrenOf(id int64) []domain.Node
}

// Serialize renders node and all of its descendants.
func Serialize(node domain.Node, src ChildSource) Document {
	doc := Document{
		ID:              node.ID,
		Name:            node.Name,
		MinNum:          node.MinNum,
		MaxNum:          node.MaxNum,
		ParentID:        node.ParentID,
		CanHaveChildren: node.CanHaveChildren,
	}
	if !node.CanHaveChildren {
		return doc
	}
	children := src.ChildrenOf(node.ID)
	doc.Children = make([]Document, 0, len(children))
	for _, child := range children {
		doc.Children = append(doc.Children, Serialize(child, src))
	}
	return doc
}

// SerializeForest renders each root in order.
func SerializeForest(roots []domain.Node, src ChildSource) []Document {
	docs := make([]Document, 0, len(roots))
	for _, root := range roots {
		docs = append(docs, Serialize(root, src))
	}
	return docs
}

// Index groups a flat node list by parent. Built from a single store read, it
// gives a consistent view of a subtree or of the whole forest.
type Index struct {
	byID     map[int64]domain.Node
	children map[int64][]domain.Node
}

// NewIndex builds an Index. Children are ordered by id.
func NewIndex(nodes []domain.Node) *Index {
	idx := &Index{
		byID:     make(map[int64]domain.Node, len(nodes)),
		children: make(map[int64][]domain.Node),
	}
	for _, n := range nodes {
		idx.byID[n.ID] = n
		if n.ParentID != nil {
			idx.children[*n.ParentID] = append(idx.children[*n.ParentID], n)
		}
	}
	for pid := range idx.children {
		kids := idx.children[pid]
		sort.Slice(kids, func(i, j int) bool { return kids[i].ID < kids[j].ID })
	}
	return idx
}

// ChildrenOf implements ChildSource.
func (i *Index) ChildrenOf(id int64) []domain.Node {
	return i.children[id]
}

// Node looks up a node by id.
func (i *Index) Node(id int64) (domain.Node, bool) {
	n, ok := i.byID[id]
	return n, ok
}
