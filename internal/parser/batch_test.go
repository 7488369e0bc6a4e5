package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolmap/internal/parser"
	"rolmap/internal/testutil"
)

func TestParseBytes_ValidRowsInFileOrder(t *testing.T) {
	t.Parallel()

	data := testutil.BuildWorkbook(t, testutil.Headers(), testutil.ValidRows(3))

	res, err := parser.ParseBytes(data, parser.Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 3, res.TotalRows)

	for i, p := range res.Records {
		assert.Equal(t, testutil.ValidRows(3)[i][0], p.RollNumber)
		assert.Equal(t, p.LandValuation+p.ConstructionValuation, p.TotalValuation)
		assert.Equal(t, 75000000.0, p.TotalValuation, "input AVALÚO TOTAL must be ignored")
		assert.Equal(t, "1000000", p.PostalCode)
	}
}

func TestParseBytes_MissingLatitudeColumn(t *testing.T) {
	t.Parallel()

	data := testutil.BuildWorkbook(t, testutil.HeadersWithout("Latitud"), testutil.ValidRows(2))

	res, err := parser.ParseBytes(data, parser.Options{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, parser.ErrMissingColumns))

	var mce *parser.MissingColumnsError
	require.ErrorAs(t, err, &mce)
	assert.Contains(t, mce.Missing, "Latitud")
	assert.Contains(t, err.Error(), "Latitud")
}

func TestParseBytes_InvalidCoordinateRowSkipped(t *testing.T) {
	t.Parallel()

	rows := testutil.ValidRows(1)
	rows = append(rows, testutil.Row("123", "Main 1", 200, -70.3))
	rows = append(rows, testutil.ValidRows(3)[2])

	data := testutil.BuildWorkbook(t, testutil.Headers(), rows)

	res, err := parser.ParseBytes(data, parser.Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Len(t, res.Skipped, 1)

	skip := res.Skipped[0]
	assert.Equal(t, 3, skip.Row, "header is row 1, bad row is row 3")
	assert.Equal(t, "123", skip.RollNumber)
	assert.Contains(t, skip.Reason, "coordenadas inválidas")
}

func TestParseBytes_CoordinateGate(t *testing.T) {
	t.Parallel()

	absentLat := testutil.Row("A-3", "Main 3", 0, -70)
	absentLat[12] = ""

	rows := [][]interface{}{
		testutil.Row("A-1", "Main 1", 91, -70),
		testutil.Row("A-2", "Main 2", -18, 181),
		absentLat,
		testutil.Row("OK-1", "Main 4", -18, -70),
	}
	data := testutil.BuildWorkbook(t, testutil.Headers(), rows)

	res, err := parser.ParseBytes(data, parser.Options{ZeroCoordinates: parser.ZeroIsValid})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "OK-1", res.Records[0].RollNumber)
	assert.Len(t, res.Skipped, 3)
}

func TestParseBytes_BlankRowsSilentlySkipped(t *testing.T) {
	t.Parallel()

	rows := testutil.ValidRows(2)
	rows = [][]interface{}{rows[0], {}, {"", "  "}, rows[1]}
	data := testutil.BuildWorkbook(t, testutil.Headers(), rows)

	res, err := parser.ParseBytes(data, parser.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Empty(t, res.Skipped)
}

func TestParseBytes_TooFewRows(t *testing.T) {
	t.Parallel()

	data := testutil.BuildWorkbook(t, testutil.Headers(), nil)

	_, err := parser.ParseBytes(data, parser.Options{})
	assert.ErrorIs(t, err, parser.ErrTooFewRows)
	assert.True(t, parser.IsFileLevel(err))
}

func TestParseBytes_NoValidRecordsKeepsSkipLog(t *testing.T) {
	t.Parallel()

	rows := [][]interface{}{
		testutil.Row("", "Main 1", -18, -70),
		testutil.Row("2", "", -18, -70),
	}
	data := testutil.BuildWorkbook(t, testutil.Headers(), rows)

	res, err := parser.ParseBytes(data, parser.Options{})
	assert.ErrorIs(t, err, parser.ErrNoValidRecords)
	require.NotNil(t, res)
	assert.Len(t, res.Skipped, 2)
}

func TestParseBytes_Unreadable(t *testing.T) {
	t.Parallel()

	_, err := parser.ParseBytes([]byte("not a workbook"), parser.Options{})
	assert.ErrorIs(t, err, parser.ErrUnreadable)
}

func TestCheckFileType(t *testing.T) {
	t.Parallel()

	assert.NoError(t, parser.CheckFileType("datos.XLSX", ""))
	assert.NoError(t, parser.CheckFileType("datos.xls", ""))
	assert.NoError(t, parser.CheckFileType("blob", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.ErrorIs(t, parser.CheckFileType("datos.csv", "text/csv"), parser.ErrInvalidFileType)
	assert.ErrorIs(t, parser.CheckFileType("datos.pdf", ""), parser.ErrInvalidFileType)
}
