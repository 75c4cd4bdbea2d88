package remote

import (
	"fmt"
	"testing"

	"github.com/myrjola/aivisibility/internal/queries"
	"github.com/stretchr/testify/require"
)

func TestAnalysisQueries(t *testing.T) {
	t.Run("trims and drops blanks", func(t *testing.T) {
		list, err := analysisQueries([]string{" best ceramic pans ", "", "non-toxic cookware"})
		require.NoError(t, err)
		require.Equal(t, []string{"best ceramic pans", "non-toxic cookware"}, list)
	})

	t.Run("only blanks", func(t *testing.T) {
		_, err := analysisQueries([]string{" ", ""})
		require.Error(t, err)
	})

	tooMany := make([]string, queries.MaxQueries+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("query %d", i)
	}

	t.Run("too many", func(t *testing.T) {
		_, err := analysisQueries(tooMany)
		require.Error(t, err)
		list, err := analysisQueries(tooMany[:queries.MaxQueries])
		require.NoError(t, err)
		require.Len(t, list, queries.MaxQueries)
	})

	t.Run("command rejects too many arguments", func(t *testing.T) {
		require.Error(t, Analyze.Args(Analyze, tooMany))
		require.NoError(t, Analyze.Args(Analyze, tooMany[:queries.MaxQueries]))
	})
}
