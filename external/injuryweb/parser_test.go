package injuryweb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const espnHTML = `
<html><body>
<div class="ResponsiveTable">
  <div class="Table__Title">Boston Celtics</div>
  <table>
    <thead><tr><th>NAME</th><th>POS</th><th>EST. RETURN DATE</th><th>STATUS</th><th>COMMENT</th></tr></thead>
    <tbody>
      <tr><td>Jayson Tatum</td><td>SF</td><td>Jan 12</td><td>Day-To-Day</td><td>Ankle sprain</td></tr>
      <tr><td>Al Horford</td><td>C</td><td></td><td>Out</td><td>Rest</td></tr>
    </tbody>
  </table>
</div>
<div class="ResponsiveTable">
  <div class="Table__Title">Denver Nuggets</div>
  <table>
    <thead><tr><th>NAME</th><th>POS</th><th>EST. RETURN DATE</th><th>STATUS</th><th>COMMENT</th></tr></thead>
    <tbody>
      <tr><td>Jamal Murray</td><td>PG</td><td>Jan 15</td><td>Questionable</td><td>Knee soreness</td></tr>
    </tbody>
  </table>
</div>
</body></html>`

const rotowireHTML = `
<html><body>
<table>
  <thead><tr><th>RANK</th><th>VALUE</th></tr></thead>
  <tbody><tr><td>1</td><td>n/a</td></tr></tbody>
</table>
<table>
  <thead><tr><th>PLAYER</th><th>TEAM</th><th>POS</th><th>STATUS</th><th>INJURY</th></tr></thead>
  <tbody>
    <tr><td>Kawhi Leonard</td><td>LAC</td><td>SF</td><td>GTD</td><td>Knee</td></tr>
    <tr><td></td><td>LAC</td><td></td><td></td><td></td></tr>
    <tr><td>Zion Williamson</td><td>NOP</td><td>PF</td><td>Out</td><td>Hamstring</td></tr>
  </tbody>
</table>
</body></html>`

func TestParseESPN(t *testing.T) {
	observedAt := time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)

	reports, err := parseSource("espn", "https://example.test/injuries", espnHTML, observedAt)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "Jayson Tatum", reports[0].PlayerName)
	assert.Equal(t, "Boston Celtics", reports[0].TeamName)
	assert.Equal(t, "Day-To-Day", reports[0].StatusRaw)
	assert.Equal(t, "Ankle sprain", reports[0].Detail)
	assert.Equal(t, "espn", reports[0].Source)
	assert.Equal(t, observedAt, reports[0].ObservedAt)

	assert.Equal(t, "Jamal Murray", reports[2].PlayerName)
	assert.Equal(t, "Denver Nuggets", reports[2].TeamName)
}

func TestParseRotowireSkipsDecorativeTablesAndEmptyRows(t *testing.T) {
	observedAt := time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)

	reports, err := parseSource("rotowire", "https://example.test/injury-report", rotowireHTML, observedAt)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "Kawhi Leonard", reports[0].PlayerName)
	assert.Equal(t, "LAC", reports[0].TeamName)
	assert.Equal(t, "GTD", reports[0].StatusRaw)
	assert.Equal(t, "Knee", reports[0].Detail)
	assert.Equal(t, "Zion Williamson", reports[1].PlayerName)
}

func TestParseGenericTableFallback(t *testing.T) {
	observedAt := time.Now().UTC()

	reports, err := parseSource("local-beat", "https://example.test/report", rotowireHTML, observedAt)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "local-beat", reports[0].Source)
	assert.Equal(t, "Out", reports[1].StatusRaw)
}
