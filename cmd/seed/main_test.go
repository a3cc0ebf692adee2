package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "nodetree.io/nodetree/internal/pkg/errors"
	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/service"
	"nodetree.io/nodetree/internal/tree"
)

func init() {
	_ = logger.Init("error", "json")
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeSeed(t, `
nodes:
  - name: Alpha
    children: 3
  - name: Bravo
`)
	file, err := loadSeedFile(path)
	require.NoError(t, err)
	require.Equal(t, []seedNode{{Name: "Alpha", Children: 3}, {Name: "Bravo"}}, file.Nodes)
}

func TestLoadSeedFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", "nodes:\n  - children: 2\n"},
		{"duplicate", "nodes:\n  - name: Alpha\n  - name: Alpha\n"},
		{"too many children", "nodes:\n  - name: Alpha\n    children: 16\n"},
		{"negative children", "nodes:\n  - name: Alpha\n    children: -1\n"},
		{"not yaml", "nodes: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadSeedFile(writeSeed(t, tt.body))
			require.Error(t, err)
		})
	}

	_, err := loadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

type fakeSeeder struct {
	mu          sync.Mutex
	nextID      int64
	existing    map[string]bool
	collisions  int
	regenerated map[int64]int
}

func newFakeSeeder(existing ...string) *fakeSeeder {
	f := &fakeSeeder{existing: map[string]bool{}, regenerated: map[int64]int{}}
	for _, n := range existing {
		f.existing[n] = true
	}
	return f
}

func (f *fakeSeeder) Create(_ context.Context, in service.CreateNodeInput) (*tree.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existing[*in.Name] {
		return nil, apperrors.ErrNodeNameTakenf(*in.Name)
	}
	f.existing[*in.Name] = true
	f.nextID++
	return &tree.Document{ID: f.nextID, Name: *in.Name}, nil
}

func (f *fakeSeeder) RegenerateChildren(_ context.Context, id int64, count int) (*service.RegenerateOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collisions > 0 {
		f.collisions--
		return nil, apperrors.Conflict(apperrors.CodeNodeNameTaken, "collision")
	}
	f.regenerated[id] = count
	return &service.RegenerateOutput{ParentID: id, Count: count}, nil
}

func TestSeed(t *testing.T) {
	f := newFakeSeeder("Charlie")
	f.collisions = 1
	file := &seedFile{Nodes: []seedNode{
		{Name: "Alpha", Children: 3},
		{Name: "Bravo"},
		{Name: "Charlie", Children: 2},
		{Name: "Delta", Children: 1},
	}}

	require.NoError(t, seed(context.Background(), f, file))

	require.True(t, f.existing["Alpha"])
	require.True(t, f.existing["Delta"])
	require.Len(t, f.regenerated, 2, "only created nodes with children are regenerated")

	counts := []int{}
	for _, c := range f.regenerated {
		counts = append(counts, c)
	}
	require.ElementsMatch(t, []int{3, 1}, counts)
}

func TestSeed_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFakeSeeder()
	f.collisions = regenerateRetries
	file := &seedFile{Nodes: []seedNode{{Name: "Alpha", Children: 3}}}

	err := seed(context.Background(), f, file)
	require.Error(t, err)
	require.True(t, hasCode(err, apperrors.CodeNodeNameTaken))
}

func TestSeed_CreateFailure(t *testing.T) {
	f := &failingSeeder{err: errors.New("boom")}
	err := seed(context.Background(), f, &seedFile{Nodes: []seedNode{{Name: "Alpha"}}})
	require.ErrorContains(t, err, "boom")
}

type failingSeeder struct{ err error }

func (f *failingSeeder) Create(context.Context, service.CreateNodeInput) (*tree.Document, error) {
	return nil, f.err
}

func (f *failingSeeder) RegenerateChildren(context.Context, int64, int) (*service.RegenerateOutput, error) {
	return nil, f.err
}
