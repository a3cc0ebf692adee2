package domain

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"too short", "Alph", true},
		{"empty", "", true},
		{"min length", "Alpha", false},
		{"multibyte counted as runes", "Ωμέγα", false},
		{"max length", strings.Repeat("a", NameMaxLength), false},
		{"over max length", strings.Repeat("a", NameMaxLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		wantErr bool
	}{
		{"ordered", Window{Min: 1, Max: 31}, false},
		{"equal bounds", Window{Min: 5, Max: 5}, true},
		{"inverted", Window{Min: 10, Max: 3}, true},
		{"negative allowed", Window{Min: -10, Max: -3}, false},
		{"max overflows smallint", Window{Min: 1, Max: 40000}, true},
		{"min underflows smallint", Window{Min: -40000, Max: 1}, true},
		{"full smallint range", Window{Min: math.MinInt16, Max: math.MaxInt16}, false},
		{"one past smallint", Window{Min: 0, Max: math.MaxInt16 + 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if tt.wantErr {
				require.True(t, errors.Is(err, ErrInvalidWindow), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWindow_SizeAndContains(t *testing.T) {
	w := Window{Min: 10, Max: 12}
	require.Equal(t, 3, w.Size())
	require.True(t, w.Contains(10))
	require.True(t, w.Contains(12))
	require.False(t, w.Contains(13))
	require.Equal(t, 0, Window{Min: 3, Max: 1}.Size())
}

func TestNode_IsRoot(t *testing.T) {
	parent := int64(1)

	require.True(t, (&Node{Name: RootName}).IsRoot())
	require.False(t, (&Node{Name: RootName, ParentID: &parent}).IsRoot())
	require.False(t, (&Node{Name: "Orphan"}).IsRoot())
}

func TestNode_Window(t *testing.T) {
	n := &Node{}
	n.SetWindow(Window{Min: 4, Max: 9})
	require.Equal(t, 4, n.MinNum)
	require.Equal(t, 9, n.MaxNum)
	require.Equal(t, Window{Min: 4, Max: 9}, n.Window())
}
