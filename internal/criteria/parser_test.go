package criteria

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaioWing/checkpoint/internal/domain"
)

func TestParse_RoundTrip(t *testing.T) {
	c := Parse(url.Values{
		"filter[brand]": {"Dell"},
		"sort":          {"-model"},
		"limit":         {"10"},
	})

	require.NotNil(t, c.FilterBy)
	assert.Equal(t, domain.FilterQuery{Field: "brand", Value: "Dell"}, *c.FilterBy)
	require.NotNil(t, c.SortBy)
	assert.Equal(t, domain.SortQuery{Field: "model", IsAscending: false}, *c.SortBy)
	require.NotNil(t, c.Limit)
	assert.Equal(t, 10, *c.Limit)
	assert.Nil(t, c.Offset)
	assert.Nil(t, c.Search)
	assert.Empty(t, c.Malformed)
}

func TestParse_AscendingSort(t *testing.T) {
	c := Parse(url.Values{"sort": {"brand"}})
	require.NotNil(t, c.SortBy)
	assert.Equal(t, "brand", c.SortBy.Field)
	assert.True(t, c.SortBy.IsAscending)
}

func TestParse_KeepsSingleFilter(t *testing.T) {
	c := Parse(url.Values{
		"filter[model]": {"XPS"},
		"filter[brand]": {"Dell"},
	})
	require.NotNil(t, c.FilterBy)
	assert.Equal(t, "brand", c.FilterBy.Field)
	assert.Equal(t, "Dell", c.FilterBy.Value)
}

func TestParse_SearchVerbatim(t *testing.T) {
	c := Parse(url.Values{"search": {"  Mac Book%"}})
	require.NotNil(t, c.Search)
	assert.Equal(t, "  Mac Book%", *c.Search)
}

func TestParse_MalformedNumbersDoNotFail(t *testing.T) {
	c := Parse(url.Values{"limit": {"ten"}, "offset": {"5"}})
	assert.Nil(t, c.Limit)
	require.NotNil(t, c.Offset)
	assert.Equal(t, 5, *c.Offset)
	assert.Equal(t, []string{"limit"}, c.Malformed)

	err := c.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_IgnoresUnknownKeys(t *testing.T) {
	c := Parse(url.Values{"page": {"2"}, "filter[]": {"x"}, "order": {"asc"}})
	assert.Equal(t, domain.DeviceCriteria{}, c)
}

func TestValidate_RejectsNegative(t *testing.T) {
	_, err := Validate(url.Values{"offset": {"-1"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := Validate(url.Values{"limit": {"0"}})
	require.NoError(t, err)
	assert.Equal(t, 0, *c.Limit)
}
