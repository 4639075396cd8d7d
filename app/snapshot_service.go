package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"allday/adapters/excel"
	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"
	"allday/internal/config"
	"allday/internal/enrich"
	"allday/ports"
)

// Snapshot is one loaded and enriched set of inputs. Nothing in it is
// mutated after Load returns.
type Snapshot struct {
	Transactions *market.Table
	Stats        []market.PlayerStat
	Challenges   []market.Challenge
	Catalog      []market.CatalogEntry
	InputsHash   core.Hash
}

// SnapshotService loads the input files of a snapshot and prepares the
// transaction table for analysis
type SnapshotService struct {
	source ports.SnapshotSource
	files  config.DataConfig
	tables *config.Tables
	logger *internal.Logger
}

// NewSnapshotService creates a snapshot loader
func NewSnapshotService(source ports.SnapshotSource, files config.DataConfig, tables *config.Tables, logger *internal.Logger) *SnapshotService {
	return &SnapshotService{
		source: source,
		files:  files,
		tables: tables,
		logger: logger.WithComponent("snapshot"),
	}
}

// Load reads every configured input. Transactions are required; stats,
// challenges and the pack catalog are used when present.
func (s *SnapshotService) Load(ctx context.Context) (*Snapshot, error) {
	loader := excel.NewLoader(s.tables.Location(), s.logger)
	var digests []string

	data, digest, err := s.read(ctx, s.files.TransactionsFile)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	digests = append(digests, digest)
	table, err := loader.Transactions(data)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}

	snap := &Snapshot{}
	if data, digest, err = s.readOptional(ctx, s.files.StatsFile); err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	} else if data != nil {
		digests = append(digests, digest)
		if snap.Stats, err = loader.PlayerStats(data); err != nil {
			return nil, fmt.Errorf("player stats: %w", err)
		}
	}

	if snap.Challenges, err = s.tables.ConfiguredChallenges(); err != nil {
		return nil, err
	}
	if data, digest, err = s.readOptional(ctx, s.files.ChallengesFile); err != nil {
		return nil, fmt.Errorf("challenges: %w", err)
	} else if data != nil {
		digests = append(digests, digest)
		loaded, err := loader.Challenges(data)
		if err != nil {
			return nil, fmt.Errorf("challenges: %w", err)
		}
		snap.Challenges = append(snap.Challenges, loaded...)
	}

	if data, digest, err = s.readOptional(ctx, s.files.PackCatalogFile); err != nil {
		return nil, fmt.Errorf("pack catalog: %w", err)
	} else if data != nil {
		digests = append(digests, digest)
		if snap.Catalog, err = loader.Catalog(data); err != nil {
			return nil, fmt.Errorf("pack catalog: %w", err)
		}
	}

	snap.Transactions = s.Prepare(table, snap.Stats)
	snap.InputsHash = core.NewHash([]byte(strings.Join(digests, "|")))
	s.logger.Info("loaded snapshot %s: %d transactions, %d stat lines, %d challenges, %d catalog entries",
		snap.InputsHash, snap.Transactions.Len(), len(snap.Stats), len(snap.Challenges), len(snap.Catalog))
	return snap, nil
}

// Prepare canonicalizes player names and derives the scoring flags. Input
// flags the export lacks are declared as all-null columns.
func (s *SnapshotService) Prepare(t *market.Table, playerStats []market.PlayerStat) *market.Table {
	mapping := s.tables.NameMapping()
	var index *market.StatIndex
	if len(playerStats) > 0 {
		index = market.NewStatIndex(playerStats, mapping)
	}
	for _, flag := range []string{market.FlagWonGame, market.FlagInPack} {
		if !t.HasFlag(flag) {
			t = t.WithFlagColumn(flag, func(*market.Transaction) market.Flag { return market.FlagNull })
		}
	}
	t = enrich.CanonicalNames(t, mapping)
	return enrich.NewScorer(mapping, index, s.logger).Apply(t)
}

func (s *SnapshotService) read(ctx context.Context, name string) (*excel.ExcelData, string, error) {
	rc, err := s.source.Open(ctx, name)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read %s: %w", name, err)
	}
	data, err := excel.NewDataReader(name, s.logger).ReadFrom(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	return data, name + ":" + core.NewHash(raw).String(), nil
}

// readOptional treats an unset or missing file as absent
func (s *SnapshotService) readOptional(ctx context.Context, name string) (*excel.ExcelData, string, error) {
	if name == "" {
		return nil, "", nil
	}
	data, digest, err := s.read(ctx, name)
	if core.IsNotFoundError(err) {
		s.logger.Warn("optional input %s not found, skipping", name)
		return nil, "", nil
	}
	return data, digest, err
}
