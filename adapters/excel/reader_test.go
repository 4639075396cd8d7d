package excel

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"
	apperrors "allday/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var eastern = time.FixedZone("EDT", -4*3600)

const transactionsCSV = `Datetime,tx_id,marketplace_id,NFT_ID,Price,Player,Team,Position,Moment_Tier,Play_Type,Season,Week,Description,site,Total_Circulation,Mint_Date,won_game,pbp_td
2022-09-27 12:00:00,tx1,m1,n1,10.5,Patrick Mahomes,KC,QB,RARE,Pass,2022,3,Mahomes throws a TD,NFL ALL DAY,1500,2022-09-27 06:00:00-04:00,True,
2022-09-28 09:30:00-04:00,tx2,m2,n2,"1,200",Justin Jefferson,MIN,WR,legendary,Reception,2022,3,,NFL ALL DAY,99,,False,1.0
,tx3,m3,n3,5,Nobody,,,COMMON,Rush,2022,3,,,,,,
2022-09-29 10:00:00,tx4,m4,n4,nan,Nobody,,,COMMON,Rush,2022,3,,,,,,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSVTransactions(t *testing.T) {
	logger := internal.NewNopLogger()
	path := writeFile(t, "current_allday_data.csv", transactionsCSV)

	data, err := NewDataReader(path, logger).ReadData()
	require.NoError(t, err)
	assert.Len(t, data.Rows, 4)

	table, err := NewLoader(eastern, logger).Transactions(data)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len(), "rows without a timestamp or price are skipped")

	first := table.Row(0)
	assert.Equal(t, "m1", first.MarketplaceID)
	assert.Equal(t, "n1", first.CopyID)
	assert.Equal(t, market.TierRare, first.Tier)
	assert.Equal(t, 10.5, first.Price)
	assert.Equal(t, 3, first.Week)
	assert.Equal(t, 1500, first.TotalCirculation)
	assert.True(t, first.Timestamp.Equal(time.Date(2022, 9, 27, 16, 0, 0, 0, time.UTC)))
	assert.False(t, first.MintedAt.IsZero())
	assert.Equal(t, market.FlagTrue, first.Flag(market.FlagWonGame))
	assert.Equal(t, market.FlagNull, first.Flag(string(market.PlayByPlayTD)))

	second := table.Row(1)
	assert.Equal(t, 1200.0, second.Price)
	assert.Equal(t, market.TierLegendary, second.Tier)
	assert.True(t, second.MintedAt.IsZero())
	assert.Equal(t, market.FlagTrue, second.Flag(string(market.PlayByPlayTD)))

	assert.True(t, table.HasFlag(market.FlagWonGame))
	assert.False(t, table.HasFlag(market.FlagInPack))
}

func TestTransactionsRequireCoreColumns(t *testing.T) {
	data := &ExcelData{Headers: []string{"Datetime", "Price"}}
	_, err := NewLoader(eastern, internal.NewNopLogger()).Transactions(data)
	assert.ErrorContains(t, err, "marketplace_id")
	assert.True(t, core.IsConfigurationError(err))
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestMissingColumnsAreConfigurationErrors(t *testing.T) {
	loader := NewLoader(eastern, internal.NewNopLogger())
	testCases := []struct {
		name string
		load func(*ExcelData) error
		data *ExcelData
	}{
		{"player stats without name", func(d *ExcelData) error { _, err := loader.PlayerStats(d); return err },
			&ExcelData{Headers: []string{"season", "week"}}},
		{"player stats without season", func(d *ExcelData) error { _, err := loader.PlayerStats(d); return err },
			&ExcelData{Headers: []string{"player_display_name", "week"}}},
		{"challenges without start", func(d *ExcelData) error { _, err := loader.Challenges(d); return err },
			&ExcelData{Headers: []string{"Name", "End"}}},
		{"catalog without pack type", func(d *ExcelData) error { _, err := loader.Catalog(d); return err },
			&ExcelData{Headers: []string{"Cost"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.load(tc.data)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
			assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
		})
	}
}

func TestReadGzipCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly_data.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("player_id,player_display_name,position,recent_team,season,week,passing_tds,rushing_tds,receiving_tds,fantasy_points_ppr\n" +
		"00-1,Patrick Mahomes,QB,KC,2022,3,2,1,0,28.4\n" +
		"00-2,,WR,MIN,2022,3,0,0,1,10\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	logger := internal.NewNopLogger()
	reader := NewDataReader(path, logger)
	data, err := reader.ReadData()
	require.NoError(t, err)

	lines, err := NewLoader(eastern, logger).PlayerStats(data)
	require.NoError(t, err)
	require.Len(t, lines, 1, "lines without a name are dropped")
	assert.Equal(t, "KC", lines[0].Team)
	assert.Equal(t, 3, lines[0].TotalTDs())
	assert.InDelta(t, 28.4, lines[0].FantasyPointsPPR, 1e-9)
}

func TestReadXLSXCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"Number", "Name", "Type", "Series", "Cost", "Supply", "Tiers"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]string{"1", "Series 2 Standard", "Standard", "Series 2", "59", "22222", "COMMON, RARE, LEGENDARY"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]string{"2", "Series 2 Premium", "Premium", "Series 2", "219", "3800", `["RARE","LEGENDARY"]`}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	logger := internal.NewNopLogger()
	data, err := NewDataReader(path, logger).ReadData()
	require.NoError(t, err)

	entries, err := NewLoader(eastern, logger).Catalog(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Standard", entries[0].PackType)
	assert.Equal(t, 59.0, entries[0].Cost)
	assert.True(t, entries[0].Includes(market.TierCommon))
	assert.False(t, entries[1].Includes(market.TierCommon))
	assert.Equal(t, 3800, entries[1].Supply)
}

func TestChallenges(t *testing.T) {
	path := writeFile(t, "challenges.csv",
		"Name,Week,Start Time (EDT),End Time (EDT),What You'll Need,Positions\n"+
			`Thursday Night,5,2022-10-06 20:15,2022-10-09 20:15,"[""Patrick Mahomes"",""Travis Kelce""]",`+"\n"+
			"Any QB,5,2022-10-06 20:15,2022-10-09 20:15,,QB\n")

	logger := internal.NewNopLogger()
	data, err := NewDataReader(path, logger).ReadData()
	require.NoError(t, err)

	challenges, err := NewLoader(eastern, logger).Challenges(data)
	require.NoError(t, err)
	require.Len(t, challenges, 2)
	assert.Equal(t, []string{"Patrick Mahomes", "Travis Kelce"}, challenges[0].Players)
	assert.Empty(t, challenges[0].Positions)
	assert.Equal(t, 5, challenges[0].Week)
	assert.Equal(t, []string{"QB"}, challenges[1].Positions)
	assert.Equal(t, 72*time.Hour, challenges[1].End.Sub(challenges[1].Start))
}

func TestChallengeWithBadRange(t *testing.T) {
	data := &ExcelData{
		Headers: []string{"Name", "Start", "End"},
		Rows:    []RawRowData{{"Name": "x", "Start": "2022-10-09", "End": "2022-10-06"}},
	}
	_, err := NewLoader(eastern, internal.NewNopLogger()).Challenges(data)
	assert.ErrorContains(t, err, "bad time range")
}

func TestHeaderOnlyFileIsEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "Datetime,marketplace_id,Price\n")
	logger := internal.NewNopLogger()
	data, err := NewDataReader(path, logger).ReadData()
	require.NoError(t, err)

	table, err := NewLoader(eastern, logger).Transactions(data)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestMissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv"), internal.NewNopLogger()).ReadData()
	assert.ErrorContains(t, err, "not found")
}

func TestFileTypeOf(t *testing.T) {
	assert.Equal(t, FileTypeCSVGz, FileTypeOf("data/current_allday_data.csv.gz"))
	assert.Equal(t, FileTypeCSV, FileTypeOf("weekly_data.CSV"))
	assert.Equal(t, FileTypeXLSX, FileTypeOf("packs.xlsx"))
}
