package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"allday/internal"
	"allday/internal/packsim"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// BankRow is one moment of one bundle, flattened for columnar export
type BankRow struct {
	BankID        string  `parquet:"name=bank_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	PackType      string  `parquet:"name=pack_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Index         int32   `parquet:"name=idx, type=INT32"`
	PackTier      string  `parquet:"name=pack_tier, type=BYTE_ARRAY, convertedtype=UTF8"`
	Hit           string  `parquet:"name=hit, type=BYTE_ARRAY, convertedtype=UTF8"`
	MarketplaceID string  `parquet:"name=marketplace_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Player        string  `parquet:"name=player, type=BYTE_ARRAY, convertedtype=UTF8"`
	Team          string  `parquet:"name=team, type=BYTE_ARRAY, convertedtype=UTF8"`
	Position      string  `parquet:"name=position, type=BYTE_ARRAY, convertedtype=UTF8"`
	MomentTier    string  `parquet:"name=moment_tier, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price         float64 `parquet:"name=price, type=DOUBLE"`
	Site          string  `parquet:"name=site, type=BYTE_ARRAY, convertedtype=UTF8"`
	Total         float64 `parquet:"name=total, type=DOUBLE"`
}

// Rows flattens a bank in bundle order
func Rows(bank *packsim.Bank) []BankRow {
	rows := make([]BankRow, 0, bank.Len()*4)
	_ = bank.Each(func(b packsim.Bundle) error {
		hit := b.Hit().String()
		for _, it := range b.Items {
			rows = append(rows, BankRow{
				BankID:        bank.ID.String(),
				PackType:      bank.PackType,
				Index:         int32(b.Index),
				PackTier:      b.Rolled.String(),
				Hit:           hit,
				MarketplaceID: it.MarketplaceID,
				Player:        it.Player,
				Team:          it.Team,
				Position:      it.Position,
				MomentTier:    it.Tier.String(),
				Price:         it.Price,
				Site:          it.Site,
				Total:         b.Total,
			})
		}
		return nil
	})
	return rows
}

// BankWriter exports banks as parquet files into a directory
type BankWriter struct {
	dir         string
	compression parquet.CompressionCodec
	logger      *internal.Logger
}

// NewBankWriter creates a writer. compression is snappy, gzip or none.
func NewBankWriter(dir, compression string, logger *internal.Logger) *BankWriter {
	codec := parquet.CompressionCodec_SNAPPY
	switch strings.ToLower(compression) {
	case "gzip":
		codec = parquet.CompressionCodec_GZIP
	case "none", "uncompressed":
		codec = parquet.CompressionCodec_UNCOMPRESSED
	}
	return &BankWriter{dir: dir, compression: codec, logger: logger.WithComponent("bank_export")}
}

// FileName is the export name for a bank, e.g. sample_packs-standard-<id>.parquet
func FileName(bank *packsim.Bank) string {
	kind := strings.ToLower(strings.ReplaceAll(bank.PackType, " ", "_"))
	return fmt.Sprintf("sample_packs-%s-%s.parquet", kind, bank.ID)
}

// Export writes one bank and returns the file path
func (w *BankWriter) Export(bank *packsim.Bank) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(w.dir, FileName(bank))

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("open parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(BankRow), 1)
	if err != nil {
		return "", fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = w.compression

	rows := Rows(bank)
	for _, rec := range rows {
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return "", fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return "", fmt.Errorf("finalize parquet: %w", err)
	}

	w.logger.Info("exported %s bank %s: %d rows to %s", bank.PackType, bank.ID, len(rows), path)
	return path, nil
}
