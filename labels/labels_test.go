package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-annotation-pipeline/vision"
)

func TestRankFiltersLowConfidence(t *testing.T) {
	ranked := Rank([]vision.Detection{
		{Name: "cat", Confidence: 0.5},
		{Name: "dog", Confidence: 0.3},
		{Name: "bird", Confidence: 0.0},
	})
	require.Empty(t, ranked)
}

func TestRankKeepsStrictlyAboveThreshold(t *testing.T) {
	ranked := Rank([]vision.Detection{{Name: "bird", Confidence: 0.52}})
	require.Len(t, ranked, 1)
	assert.Equal(t, "bird", ranked[0].Name)
	assert.Equal(t, 0.52, ranked[0].Confidence)
}

func TestRankDeduplicatesByName(t *testing.T) {
	ranked := Rank([]vision.Detection{
		{Name: "cat", Confidence: 0.91},
		{Name: "cat", Confidence: 0.60},
		{Name: "dog", Confidence: 0.3},
		{Name: "sofa", Confidence: 0.91},
	})

	require.Len(t, ranked, 2)
	names := map[string]float64{}
	for _, l := range ranked {
		names[l.Name] = l.Confidence
	}
	assert.Equal(t, 0.91, names["cat"])
	assert.Equal(t, 0.91, names["sofa"])
	assert.NotContains(t, names, "dog")
}

func TestRankKeepsHigherConfidenceRegardlessOfOrder(t *testing.T) {
	ranked := Rank([]vision.Detection{
		{Name: "cat", Confidence: 0.60},
		{Name: "cat", Confidence: 0.91},
	})
	require.Len(t, ranked, 1)
	assert.Equal(t, 0.91, ranked[0].Confidence)
}

func TestRankSortsDescending(t *testing.T) {
	ranked := Rank([]vision.Detection{
		{Name: "tree", Confidence: 0.61},
		{Name: "person", Confidence: 0.97},
		{Name: "bicycle", Confidence: 0.72},
	})

	require.Len(t, ranked, 3)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Confidence, ranked[i].Confidence)
	}
	assert.Equal(t, "person", ranked[0].Name)
	assert.Equal(t, "tree", ranked[2].Name)
}

func TestRankRoundsToTwoDecimals(t *testing.T) {
	ranked := Rank([]vision.Detection{{Name: "cup", Confidence: 0.8967}})
	require.Len(t, ranked, 1)
	assert.Equal(t, 0.9, ranked[0].Confidence)
}

func TestRankUniquenessAfterRounding(t *testing.T) {
	// 0.804 and 0.801 both round to 0.8; first occurrence wins.
	ranked := Rank([]vision.Detection{
		{Name: "chair", Confidence: 0.804},
		{Name: "chair", Confidence: 0.801},
	})
	require.Len(t, ranked, 1)
	assert.Equal(t, 0.8, ranked[0].Confidence)
}

func TestRankIgnoresEmptyNames(t *testing.T) {
	ranked := Rank([]vision.Detection{
		{Name: "", Confidence: 0.99},
		{Name: "lamp", Confidence: 0.8},
	})
	require.Len(t, ranked, 1)
	assert.Equal(t, "lamp", ranked[0].Name)
}

func TestRankIdempotent(t *testing.T) {
	first := Rank([]vision.Detection{
		{Name: "person", Confidence: 0.97},
		{Name: "bicycle", Confidence: 0.72},
		{Name: "tree", Confidence: 0.61},
	})

	again := make([]vision.Detection, 0, len(first))
	for _, l := range first {
		again = append(again, vision.Detection{Name: l.Name, Confidence: l.Confidence})
	}
	second := Rank(again)

	assert.Equal(t, first, second)
}

func TestRankEmptyInput(t *testing.T) {
	assert.Empty(t, Rank(nil))
	assert.Empty(t, Rank([]vision.Detection{}))
}

func TestEncodeJSON(t *testing.T) {
	out, ok := EncodeJSON([]RankedLabel{
		{Name: "cat", Confidence: 0.91},
		{Name: "sofa", Confidence: 0.91},
	})
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"cat","confidence":0.91},{"name":"sofa","confidence":0.91}]`, out)
}

func TestEncodeJSONFieldOrder(t *testing.T) {
	out, ok := EncodeJSON([]RankedLabel{{Name: "bird", Confidence: 0.52}})
	require.True(t, ok)
	assert.Equal(t, `[{"name":"bird","confidence":0.52}]`, out)
}

func TestEncodeJSONEmptyIsAbsentNotEmptyArray(t *testing.T) {
	out, ok := EncodeJSON(nil)
	assert.False(t, ok)
	assert.Empty(t, out)

	out, ok = EncodeJSON([]RankedLabel{})
	assert.False(t, ok)
	assert.NotEqual(t, "[]", out)
}

func TestEndToEndExample(t *testing.T) {
	ranked := Rank([]vision.Detection{
		{Name: "cat", Confidence: 0.91},
		{Name: "cat", Confidence: 0.60},
		{Name: "dog", Confidence: 0.3},
		{Name: "sofa", Confidence: 0.91},
	})
	out, ok := EncodeJSON(ranked)
	require.True(t, ok)
	assert.JSONEq(t, `[{"name":"cat","confidence":0.91},{"name":"sofa","confidence":0.91}]`, out)
}
