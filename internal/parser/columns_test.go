package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColumns_AllPresentAnyOrder(t *testing.T) {
	t.Parallel()

	headers := make([]string, 0, len(RequiredColumns)+2)
	headers = append(headers, "Columna extra")
	for i := len(RequiredColumns) - 1; i >= 0; i-- {
		headers = append(headers, RequiredColumns[i])
	}
	headers = append(headers, ColPostalCode)

	v := ValidateColumns(headers)
	assert.True(t, v.Valid)
	assert.Empty(t, v.MissingColumns)
}

func TestValidateColumns_ReportsAllMissingInOrder(t *testing.T) {
	t.Parallel()

	var headers []string
	for _, c := range RequiredColumns {
		if c == ColLatitude || c == ColRollNumber {
			continue
		}
		headers = append(headers, c)
	}

	v := ValidateColumns(headers)
	require.False(t, v.Valid)
	assert.Equal(t, []string{ColRollNumber, ColLatitude}, v.MissingColumns)
}

func TestValidateColumns_CaseSensitive(t *testing.T) {
	t.Parallel()

	headers := append([]string{}, RequiredColumns...)
	headers[len(headers)-2] = "LONGITUD"

	v := ValidateColumns(headers)
	require.False(t, v.Valid)
	assert.Equal(t, []string{ColLongitude}, v.MissingColumns)
}

func TestHeaderIndex_Cell(t *testing.T) {
	t.Parallel()

	idx := NewHeaderIndex([]string{"A", "B", "A", ""})
	assert.Equal(t, 0, idx["A"])
	assert.Equal(t, "x", idx.Cell([]string{"x", "y"}, "A"))
	assert.Equal(t, "y", idx.Cell([]string{"x", "y"}, "B"))
	assert.Equal(t, "", idx.Cell([]string{"x"}, "B"), "short row")
	assert.Equal(t, "", idx.Cell([]string{"x", "y"}, "C"), "unknown column")
}
