package vivialconnect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/vivialtest"
)

func seedNumberPool(s *vivialtest.Server) {
	s.AddAvailableNumber(map[string]any{
		"phone_number":      "+16125551212",
		"area_code":         "612",
		"region":            "MN",
		"country_code":      "US",
		"phone_number_type": "local",
	})
	s.AddAvailableNumber(map[string]any{
		"phone_number":      "+19135550100",
		"area_code":         "913",
		"region":            "KS",
		"country_code":      "US",
		"phone_number_type": "local",
	})
	s.AddAvailableNumber(map[string]any{
		"phone_number":      "+18005550199",
		"country_code":      "US",
		"phone_number_type": "tollfree",
	})
}

func TestNumbersAvailableAndBuy(t *testing.T) {
	c, s := newTestClient(t)
	seedNumberPool(s)
	ctx := t.Context()

	local, err := c.Numbers.Available(ctx, AvailableQuery{})
	require.NoError(t, err)
	assert.Len(t, local, 2)

	last, _ := s.LastRequest()
	assert.Equal(t, vivialtest.BasePath+"/accounts/"+vivialtest.DefaultAccountID+"/phone_numbers/available/US/local.json", last.Path)

	tollfree, err := c.Numbers.Available(ctx, AvailableQuery{CountryCode: "us", NumberType: "TollFree"})
	require.NoError(t, err)
	require.Len(t, tollfree, 1)
	assert.Equal(t, "+18005550199", tollfree[0].PhoneNumber())

	mn, err := c.Numbers.Available(ctx, AvailableQuery{InRegion: "MN", Limit: 5})
	require.NoError(t, err)
	require.Len(t, mn, 1)
	assert.Equal(t, "612", mn[0].AreaCode())

	n := mn[0]
	n.Set("name", "Support line")
	require.NoError(t, c.Numbers.Buy(ctx, n))
	require.False(t, n.IsNew())
	assert.Equal(t, "local", n.PhoneNumberType())

	owned, err := c.Numbers.Find(ctx, n.ID())
	require.NoError(t, err)
	assert.Equal(t, "Support line", owned.Name())
	assert.Equal(t, "+16125551212", owned.PhoneNumber())

	byArea := c.Numbers.New(map[string]any{"area_code": "913"})
	require.NoError(t, c.Numbers.BuyLocal(ctx, byArea))
	assert.Equal(t, "+19135550100", byArea.PhoneNumber())

	_, err = c.Numbers.Create(ctx, map[string]any{"area_code": "212"})
	assert.ErrorIs(t, err, requestor.ErrBadRequest)

	count, err := c.Numbers.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNumbersLookup(t *testing.T) {
	c, _ := newTestClient(t)

	info, err := c.Numbers.Lookup(t.Context(), "+16125551212")
	require.NoError(t, err)
	assert.Equal(t, "+16125551212", info.PhoneNumber())

	carrier, ok := info.Get("carrier")
	require.True(t, ok)
	assert.Equal(t, "mobile", carrier.(map[string]any)["type"])

	_, err = c.Numbers.Lookup(t.Context(), "")
	assert.ErrorIs(t, err, requestor.ErrResource)
}

func TestNumbersTags(t *testing.T) {
	c, s := newTestClient(t)
	ctx := t.Context()

	red := s.Seed("phone_numbers", map[string]any{
		"phone_number": "+16125551212",
		"tags":         map[string]any{"team": "red", "site": "msp"},
	})
	s.Seed("phone_numbers", map[string]any{
		"phone_number": "+16125551213",
		"tags":         map[string]any{"team": "blue"},
	})
	s.Seed("phone_numbers", map[string]any{"phone_number": "+16125551214"})

	tagged, err := c.Numbers.TaggedNumbers(ctx, map[string]any{
		"contains": map[string]string{"team": "red"},
	})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "+16125551212", tagged[0].PhoneNumber())

	last, _ := s.LastRequest()
	assert.Equal(t, "contains=team%3Ared", last.Query)

	notRed, err := c.Numbers.TaggedNumbers(ctx, map[string]any{
		"notcontains": map[string]string{"team": "red"},
	})
	require.NoError(t, err)
	require.Len(t, notRed, 1)
	assert.Equal(t, "+16125551213", notRed[0].PhoneNumber())

	n, err := c.Numbers.Find(ctx, red)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "red", "site": "msp"}, n.Tags())

	_, err = c.Numbers.RemoveTag(ctx, n, "color")
	assert.ErrorIs(t, err, requestor.ErrResource)

	updated, err := c.Numbers.RemoveTag(ctx, n, "team")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, map[string]string{"site": "msp"}, n.Tags())

	stored, ok := s.Get("phone_numbers", red)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"site": "msp"}, stored["tags"])
}
