package queries

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEditor(t *testing.T) {
	initial := []string{" best ceramic pans ", "", "   "}
	for i := range 12 {
		initial = append(initial, fmt.Sprintf("query %d", i))
	}
	e := NewEditor(initial)
	require.Equal(t, MaxQueries, e.Len())
	require.Equal(t, "best ceramic pans", e.Queries()[0])
	require.True(t, e.Full())
}

func TestEditor_Add(t *testing.T) {
	e := NewEditor(nil)

	added, err := e.Add("   ")
	require.NoError(t, err)
	require.False(t, added)
	require.Zero(t, e.Len())

	for i := range 25 {
		_, err = e.Add(fmt.Sprintf("query %d", i))
		require.NoError(t, err)
		require.LessOrEqual(t, e.Len(), MaxQueries)
	}
	require.Equal(t, MaxQueries, e.Len())

	added, err = e.Add("one too many")
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, "query 9", e.Queries()[MaxQueries-1])
}

func TestEditor_EditAndRemove(t *testing.T) {
	e := NewEditor([]string{"a", "b", "c"})

	require.NoError(t, e.Edit(1, " B "))
	require.Equal(t, []string{"a", "B", "c"}, e.Queries())

	require.NoError(t, e.Edit(1, " "))
	require.Equal(t, []string{"a", "B", "c"}, e.Queries())

	require.ErrorIs(t, e.Edit(3, "d"), ErrIndexOutOfRange)
	require.ErrorIs(t, e.Edit(-1, "d"), ErrIndexOutOfRange)

	require.NoError(t, e.Remove(0))
	require.Equal(t, []string{"B", "c"}, e.Queries())
	require.ErrorIs(t, e.Remove(2), ErrIndexOutOfRange)
}

func TestEditor_Freeze(t *testing.T) {
	e := NewEditor([]string{"a", "b"})
	snapshot := e.Freeze()
	require.True(t, e.Frozen())
	require.Equal(t, []string{"a", "b"}, snapshot)

	_, err := e.Add("c")
	require.ErrorIs(t, err, ErrFrozen)
	require.ErrorIs(t, e.Edit(0, "x"), ErrFrozen)
	require.ErrorIs(t, e.Remove(0), ErrFrozen)

	// The snapshot is detached from the editor.
	snapshot[0] = "changed"
	require.Equal(t, []string{"a", "b"}, e.Queries())
}
