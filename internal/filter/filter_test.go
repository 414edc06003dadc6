package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/spksearch/internal/models"
)

func samplePackages() []models.Package {
	return []models.Package{
		{Name: "NotIncluded", Description: "NotIncluded"},
		{Name: "ThisIsTest", Description: "ThisIsDescription"},
		{Name: "ThisIsName", Description: "ThisIsTestDescription"},
	}
}

func TestFilterResultsNil(t *testing.T) {
	assert.Nil(t, FilterResults(nil, "test"))
}

func TestFilterResultsEmpty(t *testing.T) {
	assert.Nil(t, FilterResults([]models.Package{}, "test"))
}

func TestFilterResultsKeyword(t *testing.T) {
	result := FilterResults(samplePackages(), "test")
	require.NotNil(t, result)
	require.Len(t, result, 2)

	assert.Equal(t, "ThisIsTest", result[0].Name)
	assert.Equal(t, "ThisIsDescription", result[0].Description)
	assert.Equal(t, "ThisIsName", result[1].Name)
	assert.Equal(t, "ThisIsTestDescription", result[1].Description)
}

func TestFilterResultsNoMatch(t *testing.T) {
	result := FilterResults(samplePackages(), "zzz")
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestFilterCaseSensitive(t *testing.T) {
	strict := Filter{CaseSensitive: true}

	assert.Empty(t, strict.Apply(samplePackages(), "test"))

	result := strict.Apply(samplePackages(), "Test")
	require.Len(t, result, 2)
	assert.Equal(t, "ThisIsTest", result[0].Name)
}

func TestFilterIsIdempotent(t *testing.T) {
	for _, f := range []Filter{{}, {CaseSensitive: true}} {
		once := f.Apply(samplePackages(), "Test")
		twice := f.Apply(once, "Test")
		assert.Equal(t, once, twice)
	}
}
