package tree

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"nodetree.io/nodetree/internal/domain"
)

func ptr(v int64) *int64 { return &v }

func sampleNodes() []domain.Node {
	return []domain.Node{
		{ID: 1, Name: domain.RootName, CanHaveChildren: true, MinNum: 10, MaxNum: 20},
		{ID: 3, Name: "Bravo", ParentID: ptr(1), CanHaveChildren: true, MinNum: 1, MaxNum: 5},
		{ID: 2, Name: "Alpha", ParentID: ptr(1), CanHaveChildren: true, MinNum: 100, MaxNum: 120},
		{ID: 5, Name: "104", ParentID: ptr(2), CanHaveChildren: false, MinNum: 100, MaxNum: 120},
		{ID: 4, Name: "111", ParentID: ptr(2), CanHaveChildren: false, MinNum: 100, MaxNum: 120},
	}
}

func TestSerialize_Recursive(t *testing.T) {
	nodes := sampleNodes()
	idx := NewIndex(nodes)

	doc := Serialize(nodes[0], idx)

	require.Equal(t, int64(1), doc.ID)
	require.Len(t, doc.Children, 2)
	require.Equal(t, "Alpha", doc.Children[0].Name, "children ordered by id")
	require.Equal(t, "Bravo", doc.Children[1].Name)

	alpha := doc.Children[0]
	require.Len(t, alpha.Children, 2)
	require.Equal(t, "111", alpha.Children[0].Name)
	require.Equal(t, "104", alpha.Children[1].Name)
	require.Nil(t, alpha.Children[0].Children)

	bravo := doc.Children[1]
	require.NotNil(t, bravo.Children)
	require.Empty(t, bravo.Children)
}

func TestDocument_MarshalJSON(t *testing.T) {
	nodes := sampleNodes()
	idx := NewIndex(nodes)
	bravo, ok := idx.Node(3)
	require.True(t, ok)

	data, err := json.Marshal(Serialize(bravo, idx))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":3,"name":"Bravo","min_num":1,"max_num":5,"parent_id":1,"can_have_children":true,"children":[]}`, string(data))

	leaf, _ := idx.Node(4)
	data, err = json.Marshal(Serialize(leaf, idx))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":4,"name":"111","min_num":100,"max_num":120,"parent_id":2,"can_have_children":false}`, string(data))

	root, _ := idx.Node(1)
	data, err = json.Marshal(Serialize(root, NewIndex([]domain.Node{root})))
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1,"name":"Root","min_num":10,"max_num":20,"parent_id":null,"can_have_children":true,"children":[]}`, string(data))
}

func TestSerialize_Deterministic(t *testing.T) {
	nodes := sampleNodes()

	first, err := json.Marshal(SerializeForest(nodes[:1], NewIndex(nodes)))
	require.NoError(t, err)
	second, err := json.Marshal(SerializeForest(nodes[:1], NewIndex(nodes)))
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
}

func TestSerializeForest_Empty(t *testing.T) {
	docs := SerializeForest(nil, NewIndex(nil))
	require.NotNil(t, docs)

	data, err := json.Marshal(docs)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestSerialize_DeepChain(t *testing.T) {
	const depth = 50
	nodes := []domain.Node{{ID: 1, Name: domain.RootName, CanHaveChildren: true}}
	for i := int64(2); i <= depth; i++ {
		nodes = append(nodes, domain.Node{ID: i, Name: "level", ParentID: ptr(i - 1), CanHaveChildren: true})
	}

	doc := Serialize(nodes[0], NewIndex(nodes))

	levels := 1
	for len(doc.Children) == 1 {
		doc = doc.Children[0]
		levels++
	}
	require.Equal(t, depth, levels)
}

func TestIndex_Node(t *testing.T) {
	n, ok := NewIndex(sampleNodes()).Node(1)
	require.True(t, ok)
	require.Equal(t, int64(1), n.ID)
	_, ok = NewIndex(nil).Node(1)
	require.False(t, ok)
}
