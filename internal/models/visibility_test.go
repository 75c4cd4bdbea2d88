package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/myrjola/aivisibility/internal/models"
	"github.com/stretchr/testify/require"
)

func TestBrandInput_KeywordList(t *testing.T) {
	brand := models.BrandInput{Keywords: " ceramic pans, ,non-toxic cookware ,"}
	require.Equal(t, []string{"ceramic pans", "non-toxic cookware"}, brand.KeywordList())
	require.Empty(t, models.BrandInput{}.KeywordList())
}

func TestBrandInput_Complete(t *testing.T) {
	require.True(t, models.BrandInput{Name: "Ember", Domain: "ember.com", Keywords: "pans"}.Complete())
	require.False(t, models.BrandInput{Name: "Ember", Domain: "  ", Keywords: "pans"}.Complete())
}

func TestMatchesDomain(t *testing.T) {
	tests := []struct {
		name        string
		brandDomain string
		source      string
		want        bool
	}{
		{name: "bare", brandDomain: "embercookware.com", source: "embercookware.com", want: true},
		{name: "scheme and www stripped", brandDomain: "https://www.EmberCookware.com/shop", source: "blog.embercookware.com", want: true},
		{name: "other site", brandDomain: "embercookware.com", source: "reddit.com", want: false},
		{name: "empty brand domain", brandDomain: "https://", source: "reddit.com", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, models.MatchesDomain(tt.brandDomain, tt.source))
		})
	}
}

func TestReport(t *testing.T) {
	payload := `{
		"name": "Ember Cookware",
		"domain": "embercookware.com",
		"keywords": "ceramic pans",
		"created_at": {"_seconds": 1700000000, "_nanoseconds": 0},
		"created_by": "founder@ember.com",
		"analysis": [
			{"query": "best ceramic pans", "rank": 2, "is_visible": true},
			{"query": "non-toxic cookware", "rank": 0}
		]
	}`
	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(payload), &report))
	require.Equal(t, []string{"best ceramic pans", "non-toxic cookware"}, report.Queries())
	require.Equal(t, models.BrandInput{Name: "Ember Cookware", Domain: "embercookware.com", Keywords: "ceramic pans"},
		report.Brand())
	require.Equal(t, time.Unix(1700000000, 0).UTC(), report.CreatedAt.Time)
	require.True(t, report.Analysis[0].Ranked())
	require.False(t, report.Analysis[1].Ranked())
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "rfc3339", in: `"2025-01-02T03:04:05Z"`, want: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "unix seconds", in: `1700000000`, want: time.Unix(1700000000, 0).UTC()},
		{name: "seconds object", in: `{"seconds": 1700000000}`, want: time.Unix(1700000000, 0).UTC()},
		{name: "null", in: `null`, want: time.Time{}},
		{name: "garbage string", in: `"yesterday"`, want: time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts models.Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			require.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}
