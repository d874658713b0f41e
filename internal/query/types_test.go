package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EveryTool(t *testing.T) {
	testCases := []struct {
		tool string
		want Request
	}{
		{tool: ToolRange, want: &RangeRequest{}},
		{tool: ToolOverview, want: &OverviewRequest{}},
		{tool: ToolCheckCoverage, want: &CoverageRequest{}},
		{tool: ToolCustom, want: &CustomRequest{}},
		{tool: ToolUpdateRange, want: &UpdateRangeRequest{}},
		{tool: ToolDescribe, want: &DescribeRequest{}},
		{tool: ToolGroupByPeriod, want: &GroupByPeriodRequest{}},
		{tool: ToolCompareCities, want: &CompareCitiesRequest{}},
		{tool: ToolExtremeEvents, want: &ExtremeEventsRequest{}},
		{tool: ToolForecast, want: &ForecastRequest{}},
	}
	for _, tc := range testCases {
		t.Run(tc.tool, func(t *testing.T) {
			req, err := Decode(tc.tool, []byte(`{}`))
			require.NoError(t, err)
			assert.IsType(t, tc.want, req)
		})
	}
}

func TestDecode_UnknownTool(t *testing.T) {
	_, err := Decode("query.drop_table", []byte(`{}`))
	require.Error(t, err)
	assert.True(t, IsUnknownTool(err))
	assert.Contains(t, err.Error(), "query.drop_table")
}

func TestDecode_PopulatesArguments(t *testing.T) {
	req, err := Decode(ToolRange, []byte(`{"city":"beijing","start_date":"2024-01-01","end_date":"2024-01-31","limit":10}`))
	require.NoError(t, err)

	r, ok := req.(*RangeRequest)
	require.True(t, ok)
	assert.Equal(t, "beijing", r.City)
	assert.Equal(t, "2024-01-01", r.StartDate)
	assert.Equal(t, "2024-01-31", r.EndDate)
	assert.Equal(t, 10, r.Limit)
}

func TestDecode_ExtraKeysIgnored(t *testing.T) {
	req, err := Decode(ToolForecast, []byte(`{"city":"beijing","metric":"temp_max","unexpected":"value"}`))
	require.NoError(t, err)

	r, ok := req.(*ForecastRequest)
	require.True(t, ok)
	assert.Equal(t, "beijing", r.City)
}

func TestDecode_EmptyArgs(t *testing.T) {
	req, err := Decode(ToolOverview, nil)
	require.NoError(t, err)
	assert.IsType(t, &OverviewRequest{}, req)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode(ToolRange, []byte(`{"city":`))
	require.Error(t, err)
	assert.False(t, IsUnknownTool(err))
}

func TestTools_ClosedSet(t *testing.T) {
	assert.Len(t, Tools, 10)
	for _, name := range Tools {
		_, err := Decode(name, []byte(`{}`))
		require.NoError(t, err)
	}
}
