package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"allday/domain/market"

	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04:05"

// TransactionHeader is the column order written for a transaction snapshot
func TransactionHeader(flags []string) []string {
	header := []string{
		colDatetime, colTxID, colMarketplaceID, colNFTID, colPrice,
		colPlayer, colTeam, colPosition, colTier, colPlayType,
		colSeries, colSetName, colSeason, colWeek, colDescription,
		colSite, colTotalCirculation, colMintDate,
	}
	return append(header, flags...)
}

// TransactionRecords renders rows as strings in TransactionHeader order.
// Null flags are written as empty cells.
func TransactionRecords(rows []market.Transaction, flags []string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, tx := range rows {
		minted := ""
		if !tx.MintedAt.IsZero() {
			minted = tx.MintedAt.Format(timeLayout)
		}
		rec := []string{
			tx.Timestamp.Format(timeLayout),
			tx.TxID,
			tx.MarketplaceID,
			tx.CopyID,
			strconv.FormatFloat(tx.Price, 'f', -1, 64),
			tx.Player,
			tx.Team,
			tx.Position,
			string(tx.Tier),
			tx.PlayType,
			tx.Series,
			tx.SetName,
			strconv.Itoa(tx.Season),
			strconv.Itoa(tx.Week),
			tx.Description,
			tx.Site,
			strconv.Itoa(tx.TotalCirculation),
			minted,
		}
		for _, name := range flags {
			f := tx.Flag(name)
			if f.IsNull() {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, f.String())
		}
		out = append(out, rec)
	}
	return out
}

// WriteTransactions writes rows to path as CSV or XLSX, chosen by extension
func WriteTransactions(path string, rows []market.Transaction, flags []string) error {
	header := TransactionHeader(flags)
	records := TransactionRecords(rows, flags)
	switch FileTypeOf(path) {
	case FileTypeCSV:
		return writeCSV(path, header, records)
	case FileTypeXLSX:
		return writeXLSX(path, header, records)
	default:
		return fmt.Errorf("unsupported output type for %s", path)
	}
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

func writeXLSX(path string, header []string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	row := func(n int, values []string) error {
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, n)
		return sw.SetRow(cell, cells)
	}
	if err := row(1, header); err != nil {
		return err
	}
	for i, rec := range records {
		if err := row(i+2, rec); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}
