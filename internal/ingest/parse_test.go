package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const monthPageHTML = `<html><body>
<table>
<tr><th>日期</th><th>天气状况</th><th>气温</th><th>风力风向</th></tr>
<tr>
  <td>2024-01-01 星期一</td>
  <td>晴</td>
  <td>-5℃ / 3℃</td>
  <td>北风 3-4级</td>
</tr>
<tr>
  <td>2024年01月02日</td>
  <td>多云</td>
  <td>-3℃ / 5℃</td>
  <td></td>
</tr>
<tr>
  <td>not a date</td>
  <td>晴</td>
  <td>0℃ / 0℃</td>
  <td>无风</td>
</tr>
</table>
</body></html>`

func TestParseMonthPage(t *testing.T) {
	rows, err := parseMonthPage(strings.NewReader(monthPageHTML), "北京")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "北京", first.City)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)
	require.NotNil(t, first.Condition)
	assert.Equal(t, "晴", *first.Condition)
	require.NotNil(t, first.TempMin)
	assert.Equal(t, -5.0, *first.TempMin)
	require.NotNil(t, first.TempMax)
	assert.Equal(t, 3.0, *first.TempMax)
	require.NotNil(t, first.Wind)
	assert.Equal(t, "北风 3-4级", *first.Wind)

	// Chinese date spelling parses too; the empty wind cell scans to nil.
	second := rows[1]
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), second.Date)
	assert.Nil(t, second.Wind)
}

func TestParseMonthPage_NoTable(t *testing.T) {
	_, err := parseMonthPage(strings.NewReader("<html><body><p>404</p></body></html>"), "北京")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table")
}

func TestParsePageDate(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "iso", raw: "2024-01-05", want: "2024-01-05", ok: true},
		{name: "iso with weekday", raw: "2024-01-05 星期五", want: "2024-01-05", ok: true},
		{name: "chinese padded", raw: "2024年01月05日", want: "2024-01-05", ok: true},
		{name: "chinese unpadded", raw: "2024年1月5日", want: "2024-01-05", ok: true},
		{name: "garbage", raw: "日期", ok: false},
		{name: "empty", raw: "", ok: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parsePageDate(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestParseTemp(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	testCases := []struct {
		name   string
		raw    string
		wantLo *float64
		wantHi *float64
	}{
		{name: "slash separated", raw: "7℃/16℃", wantLo: f(7), wantHi: f(16)},
		{name: "spaces around slash", raw: " 7℃ / 16℃ ", wantLo: f(7), wantHi: f(16)},
		{name: "tilde separated", raw: "7~16", wantLo: f(7), wantHi: f(16)},
		{name: "reversed pair swapped", raw: "16℃/7℃", wantLo: f(7), wantHi: f(16)},
		{name: "negative low", raw: "-5℃/3℃", wantLo: f(-5), wantHi: f(3)},
		{name: "single value fills both", raw: "12℃", wantLo: f(12), wantHi: f(12)},
		{name: "empty", raw: "", wantLo: nil, wantHi: nil},
		{name: "garbage", raw: "无", wantLo: nil, wantHi: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi := parseTemp(tc.raw)
			if tc.wantLo == nil {
				assert.Nil(t, lo)
				assert.Nil(t, hi)
				return
			}
			require.NotNil(t, lo)
			require.NotNil(t, hi)
			assert.Equal(t, *tc.wantLo, *lo)
			assert.Equal(t, *tc.wantHi, *hi)
		})
	}
}

func TestDecodeGBK(t *testing.T) {
	encoded, _, err := transform.String(simplifiedchinese.GBK.NewEncoder(), "北京 晴")
	require.NoError(t, err)

	rows, err := parseMonthPage(decodeGBK(strings.NewReader(
		mustGBK(t, monthPageHTML))), "北京")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Sanity: the raw GBK bytes are not valid UTF-8 for the city name.
	assert.NotEqual(t, "北京 晴", encoded)
}

func mustGBK(t *testing.T, s string) string {
	t.Helper()
	encoded, _, err := transform.String(simplifiedchinese.GBK.NewEncoder(), s)
	require.NoError(t, err)
	return encoded
}
