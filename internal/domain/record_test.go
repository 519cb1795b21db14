package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(docs int) YearCountRecord {
	return YearCountRecord{Counts: map[string]int{"GFS": docs * 2}, Documents: docs}
}

func TestMerge_SortsByOfficeThenYearAndSkipsMissing(t *testing.T) {
	tables := map[string]OfficeTable{
		"BBB": {2001: rec(3)},
		"AAA": {2001: rec(2), 2000: rec(1)},
	}

	rows := Merge(tables)

	require.Len(t, rows, 3)
	assert.Equal(t, "AAA", rows[0].Office)
	assert.Equal(t, 2000, rows[0].Year)
	assert.Equal(t, "AAA", rows[1].Office)
	assert.Equal(t, 2001, rows[1].Year)
	assert.Equal(t, "BBB", rows[2].Office)
	assert.Equal(t, 2001, rows[2].Year)
	assert.Equal(t, 3, rows[2].Record.Documents)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil))
	assert.Empty(t, Merge(map[string]OfficeTable{"AAA": {}}))
}

func TestOfficeTable_Years(t *testing.T) {
	table := OfficeTable{2010: rec(1), 2003: rec(1), 2007: rec(1)}
	assert.Equal(t, []int{2003, 2007, 2010}, table.Years())
}

func TestYearCountRecord_AddCountsAndColumn(t *testing.T) {
	r := NewYearCountRecord(Vocabulary{Search: []string{"GFS"}, Precision: []string{"LIKELY"}})
	r.AddCounts(map[string]int{"GFS": 2, "LIKELY": 1})
	r.AddCounts(map[string]int{"GFS": 3})
	r.Documents = 2

	assert.Equal(t, 5, r.Column("GFS"))
	assert.Equal(t, 1, r.Column("LIKELY"))
	assert.Equal(t, 2, r.Column(DocumentCountColumn))
}

func TestYearWindow(t *testing.T) {
	start, end := YearWindow(2024)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestProductCode(t *testing.T) {
	assert.Equal(t, "AFDOUN", ProductCode("AFD", "OUN"))
}

func TestRegions_Offices(t *testing.T) {
	regions := DefaultRegions()

	sr := regions.Offices("SR")
	count := 0
	for _, o := range sr {
		if o == "MRX" {
			count++
		}
	}
	assert.Equal(t, 1, count, "MRX should appear once")
	assert.Equal(t, "ABQ", sr[0])

	unknown := regions.Offices("XX")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)

	assert.Equal(t, []string{"CR", "ER", "SR", "WR"}, regions.Codes())
}

func TestValidRegionCode(t *testing.T) {
	for _, code := range []string{"SR", "wr", "R1"} {
		assert.True(t, ValidRegionCode(code), code)
	}
	for _, code := range []string{"", "../X", "S R", "SR/", "..", "É"} {
		assert.False(t, ValidRegionCode(code), code)
	}
}

func TestVocabulary_Validate(t *testing.T) {
	require.NoError(t, DefaultVocabulary().Validate())

	tests := []Vocabulary{
		{},
		{Search: []string{"GFS", " "}},
		{Search: []string{"GFS"}, Precision: []string{"gfs"}},
		{Search: []string{DocumentCountColumn}},
	}
	for _, v := range tests {
		assert.ErrorIs(t, v.Validate(), ErrInvalidVocabulary)
	}
}

func TestVocabulary_Columns(t *testing.T) {
	v := Vocabulary{Search: []string{"A", "B"}, Precision: []string{"C"}}
	assert.Equal(t, []string{"A", "B", "C", DocumentCountColumn}, v.Columns())
}
