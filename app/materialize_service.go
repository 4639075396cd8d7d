package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/run"
	"allday/domain/stats"
	"allday/domain/verdict"
	"allday/internal"
	"allday/internal/aggregate"
	"allday/internal/cache"
	"allday/internal/config"
	"allday/internal/enrich"
	"allday/internal/metrics"
	"allday/internal/packsim"
	"allday/internal/partition"
	"allday/internal/significance"
	"allday/ports"
)

// CodeVersion is recorded in every run fingerprint
const CodeVersion = "v1.0.0"

// AllPlayTypes is the play-type value that keeps every scoring play
const AllPlayTypes = "All"

// ChallengeGameSlot is the game window a challenge's timing is compared with
const ChallengeGameSlot = "weekly"

// DailyOps are the player-daily aggregations materialized per date range
var DailyOps = []stats.AggOp{stats.OpMedian, stats.OpMean, stats.OpCount}

// DriverQuery addresses one price-driver family
type DriverQuery struct {
	DateRange    string
	PlayType     string
	How          market.ScoringVariant
	Metric       stats.AggMetric
	PositionType market.PositionType
	Driver       significance.DriverMetric
}

// Key is the cache key of the query's family
func (q DriverQuery) Key() core.CacheKey {
	return core.NewCacheKey(run.KindPriceDrivers,
		"date_range", q.DateRange,
		"play_type", q.PlayType,
		"how_scores", string(q.How),
		"agg_metric", string(q.Metric),
		"position_type", string(q.PositionType),
		"metric", q.Driver.Name(),
		"short_form", q.Driver.ShortForm,
	)
}

// ChallengeOutcome is the timing family of one challenge plus the value of
// its expected rewards at during-challenge tier averages
type ChallengeOutcome struct {
	Name        string                        `json:"name"`
	Report      *significance.ChallengeReport `json:"report"`
	Averages    packsim.Averages              `json:"tier_averages"`
	RewardValue stats.Value                   `json:"reward_value"`
}

// MaterializeRequest defines the inputs of one materialization run
type MaterializeRequest struct {
	Snapshot *Snapshot
	Seed     uint64
}

// MaterializeResult summarizes a completed run
type MaterializeResult struct {
	Run       *run.Run       `json:"run"`
	Counts    map[string]int `json:"counts"`
	RuntimeMs int64          `json:"runtime_ms"`
}

// MaterializeService computes every derived table and test family for a
// snapshot. Each result is memoized by its cache key and, when a result
// repository is configured, persisted at the end of the run.
type MaterializeService struct {
	tables      *config.Tables
	live        *cache.Memo
	results     ports.ResultRepository
	runs        ports.RunRepository
	agg         *aggregate.Aggregator
	partitioner *partition.Partitioner
	sweeper     *significance.Sweeper
	logger      *internal.Logger
	now         func() time.Time

	// every result that does not depend on the snapshot's challenge list,
	// in materialization order
	specs []resultSpec
	byKey map[string]resultSpec

	mu     sync.RWMutex
	loaded *Snapshot
}

// resultSpec is one addressable result and how to compute it
type resultSpec struct {
	key     core.CacheKey
	kind    string
	compute func(w *worker) (interface{}, error)
}

// worker computes results from one snapshot into one memo. On-demand calls
// use the live pair; a materialization run stages a fresh memo.
type worker struct {
	*MaterializeService
	snap *Snapshot
	memo *cache.Memo
}

// NewMaterializeService creates the service. results and runs may be nil,
// in which case nothing is persisted.
func NewMaterializeService(tables *config.Tables, memo *cache.Memo, results ports.ResultRepository, runs ports.RunRepository, logger *internal.Logger) (*MaterializeService, error) {
	catalog, err := partition.NewCatalog(append(tables.DateRanges(), tables.GameWindows()...)...)
	if err != nil {
		return nil, err
	}
	family, err := significance.NewFamily("price drivers", significance.DriverFamilySize)
	if err != nil {
		return nil, err
	}
	engine, err := significance.NewEngine(family, stats.CompareMean, logger)
	if err != nil {
		return nil, err
	}
	agg := aggregate.NewAggregator(logger)
	s := &MaterializeService{
		tables:      tables,
		live:        memo,
		results:     results,
		runs:        runs,
		agg:         agg,
		partitioner: partition.NewPartitioner(catalog, logger),
		sweeper:     significance.NewSweeper(engine, agg, logger),
		logger:      logger.WithComponent("materialize"),
		now:         time.Now,
	}
	s.specs = s.staticSpecs()
	s.byKey = make(map[string]resultSpec, len(s.specs))
	for _, spec := range s.specs {
		s.byKey[spec.key.Canonical()] = spec
	}
	return s, nil
}

// Use makes snap the snapshot on-demand lookups compute from and drops
// everything memoized for the previous one
func (s *MaterializeService) Use(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = snap
	s.live.Purge()
}

// promote makes a finished run's snapshot and memo the live ones
func (s *MaterializeService) promote(snap *Snapshot, staged *cache.Memo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = snap
	s.live.Replace(staged)
}

func (s *MaterializeService) worker() (*worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loaded == nil {
		return nil, fmt.Errorf("%w: no snapshot loaded", core.ErrNotFound)
	}
	return &worker{MaterializeService: s, snap: s.loaded, memo: s.live}, nil
}

// batch collects the results of one run
type batch struct {
	runID   core.RunID
	at      time.Time
	results []run.Result
	counts  map[string]int
}

func (b *batch) add(key core.CacheKey, kind string, value interface{}) error {
	res, err := run.NewResult(key, kind, b.runID, value, b.at)
	if err != nil {
		return err
	}
	b.results = append(b.results, res)
	b.counts[kind]++
	return nil
}

// Materialize runs every computation over the snapshot in sequence. The run
// fills a staged memo; results from the previous snapshot keep being served
// until it has finished.
func (s *MaterializeService) Materialize(ctx context.Context, req MaterializeRequest) (*MaterializeResult, error) {
	start := s.now()
	fp := run.NewFingerprint(req.Snapshot.InputsHash, s.tables.Hash(), req.Seed, CodeVersion)
	if err := fp.Validate(); err != nil {
		return nil, err
	}
	staged, err := s.live.Fresh()
	if err != nil {
		return nil, err
	}

	r := run.NewRun(fp, start)
	if s.runs != nil {
		if err := s.runs.StartRun(ctx, r); err != nil {
			return nil, err
		}
	}
	s.logger.Info("materialization run %s started (fingerprint %s)", r.ID, fp.Fingerprint)

	w := &worker{MaterializeService: s, snap: req.Snapshot, memo: staged}
	b := &batch{runID: r.ID, at: start, counts: make(map[string]int)}
	err = w.materialize(ctx, b)
	if err == nil && s.results != nil {
		err = s.results.SaveResults(ctx, b.results)
	}

	r.Finish(len(b.results), err, s.now())
	if s.runs != nil {
		if ferr := s.runs.FinishRun(context.WithoutCancel(ctx), r); ferr != nil && err == nil {
			err = ferr
		}
	}
	if err != nil {
		s.logger.Error("materialization run %s failed: %v", r.ID, err)
		return nil, err
	}
	s.promote(req.Snapshot, staged)

	elapsed := s.now().Sub(start)
	for kind, n := range b.counts {
		metrics.Materialized(kind, n)
	}
	metrics.ObserveMaterialize(elapsed)
	s.logger.Info("materialization run %s stored %d results in %s", r.ID, len(b.results), elapsed)
	return &MaterializeResult{Run: r, Counts: b.counts, RuntimeMs: elapsed.Milliseconds()}, nil
}

func (w *worker) materialize(ctx context.Context, b *batch) error {
	for _, spec := range append(w.specs[:len(w.specs):len(w.specs)], w.challengeSpecs()...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := spec.compute(w)
		if spec.kind == run.KindChallenge && core.IsNotFoundError(err) {
			w.logger.Warn("%s skipped: %v", spec.key, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", spec.kind, err)
		}
		if err := b.add(spec.key, spec.kind, v); err != nil {
			return err
		}
	}
	w.logger.Debug("materialized %v", b.counts)
	return nil
}

// DriverPlayTypes lists the play-type filters of the driver sweep
func DriverPlayTypes() []string {
	return append([]string{AllPlayTypes}, market.ScoringPlayTypes()...)
}

// staticSpecs enumerates the price-driver cross product, the date-range
// tables, the game windows and the pack-drop mint tests
func (s *MaterializeService) staticSpecs() []resultSpec {
	var out []resultSpec
	add := func(key core.CacheKey, kind string, compute func(*worker) (interface{}, error)) {
		out = append(out, resultSpec{key: key, kind: kind, compute: compute})
	}

	for _, dr := range s.tables.MainDateRanges() {
		for _, pt := range DriverPlayTypes() {
			for _, how := range market.ScoringVariants() {
				for _, metric := range stats.AggMetrics() {
					for _, posType := range market.PositionTypes() {
						for _, driver := range significance.DriverMetrics(how) {
							q := DriverQuery{DateRange: dr, PlayType: pt, How: how, Metric: metric, PositionType: posType, Driver: driver}
							add(q.Key(), run.KindPriceDrivers, func(w *worker) (interface{}, error) { return w.priceDrivers(q) })
						}
					}
				}
			}
		}
	}
	for _, dr := range s.tables.SinceDateRanges() {
		for _, mode := range []stats.GroupMode{stats.ModeOverall, stats.ModePerItem} {
			add(summaryKey(dr, mode), run.KindSummary, func(w *worker) (interface{}, error) { return w.summary(dr, mode) })
		}
	}
	for _, dr := range s.tables.SinceDateRanges() {
		add(playVsPlayerKey(dr), run.KindPlayVsPlayer, func(w *worker) (interface{}, error) { return w.playVsPlayer(dr) })
	}
	for _, dr := range s.tables.MainDateRanges() {
		for _, op := range DailyOps {
			add(playerDailyKey(dr, op), run.KindPlayerDaily, func(w *worker) (interface{}, error) { return w.playerDaily(dr, op) })
		}
	}
	for _, g := range s.tables.GameWindows() {
		add(gameWindowKey(g.Name), run.KindGameWindow, func(w *worker) (interface{}, error) { return w.gameWindow(g.Name) })
	}
	for _, drop := range s.tables.PackDropWindows() {
		add(mintKey(drop.Name), run.KindMint, func(w *worker) (interface{}, error) { return w.mint(drop.Name) })
	}
	return out
}

func (w *worker) challengeSpecs() []resultSpec {
	out := make([]resultSpec, 0, len(w.snap.Challenges))
	for _, c := range w.snap.Challenges {
		out = append(out, resultSpec{
			key:     challengeKey(c.Name),
			kind:    run.KindChallenge,
			compute: func(w *worker) (interface{}, error) { return w.challenge(c.Name) },
		})
	}
	return out
}

// spec finds the result a canonical key addresses
func (w *worker) spec(canonical string) (resultSpec, bool) {
	if spec, ok := w.byKey[canonical]; ok {
		return spec, true
	}
	for _, spec := range w.challengeSpecs() {
		if spec.key.Canonical() == canonical {
			return spec, true
		}
	}
	return resultSpec{}, false
}

// PriceDrivers sweeps one driver condition over the scoring plays of a date
// range, optionally narrowed to one play type
func (s *MaterializeService) PriceDrivers(q DriverQuery) (verdict.Family, error) {
	w, err := s.worker()
	if err != nil {
		return verdict.Family{}, err
	}
	return w.priceDrivers(q)
}

func (w *worker) priceDrivers(q DriverQuery) (verdict.Family, error) {
	return cache.Fetch(w.memo, q.Key(), func() (verdict.Family, error) {
		t, err := w.driverTable(q.DateRange, q.PlayType)
		if err != nil {
			return verdict.Family{}, err
		}
		return w.sweeper.Sweep(t, q.Metric, q.PositionType, q.Driver)
	})
}

func (w *worker) driverTable(dateRange, playType string) (*market.Table, error) {
	preds := []partition.Predicate{
		partition.InWindow(dateRange),
		partition.ColumnIn(string(market.ColPlayType), market.ScoringPlayTypes()...),
	}
	if playType != AllPlayTypes {
		preds = append(preds, partition.ColumnEquals(string(market.ColPlayType), playType))
	}
	key := core.NewCacheKey("subset", "date_range", dateRange, "play_type", playType)
	return w.subset(key, preds...)
}

func (w *worker) subset(key core.CacheKey, preds ...partition.Predicate) (*market.Table, error) {
	return cache.Fetch(w.memo, key, func() (*market.Table, error) {
		return w.partitioner.Partition(w.snap.Transactions, preds...)
	})
}

func (w *worker) rangeTable(dateRange string) (*market.Table, error) {
	return w.subset(core.NewCacheKey("subset", "date_range", dateRange), partition.InWindow(dateRange))
}

func summaryKey(dateRange string, mode stats.GroupMode) core.CacheKey {
	return core.NewCacheKey(run.KindSummary, "date_range", dateRange, "mode", string(mode))
}

// Summary is the three-figure market summary of a date range
func (s *MaterializeService) Summary(dateRange string, mode stats.GroupMode) (aggregate.Summary, error) {
	w, err := s.worker()
	if err != nil {
		return aggregate.Summary{}, err
	}
	return w.summary(dateRange, mode)
}

func (w *worker) summary(dateRange string, mode stats.GroupMode) (aggregate.Summary, error) {
	return cache.Fetch(w.memo, summaryKey(dateRange, mode), func() (aggregate.Summary, error) {
		t, err := w.rangeTable(dateRange)
		if err != nil {
			return aggregate.Summary{}, err
		}
		return w.agg.Summarize(t, mode)
	})
}

func playVsPlayerKey(dateRange string) core.CacheKey {
	return core.NewCacheKey(run.KindPlayVsPlayer, "date_range", dateRange)
}

// PlayVsPlayer returns the play-type and player price tables of a date range
func (s *MaterializeService) PlayVsPlayer(dateRange string) (*aggregate.PlayVsPlayer, error) {
	w, err := s.worker()
	if err != nil {
		return nil, err
	}
	return w.playVsPlayer(dateRange)
}

func (w *worker) playVsPlayer(dateRange string) (*aggregate.PlayVsPlayer, error) {
	return cache.Fetch(w.memo, playVsPlayerKey(dateRange), func() (*aggregate.PlayVsPlayer, error) {
		t, err := w.rangeTable(dateRange)
		if err != nil {
			return nil, err
		}
		return w.agg.PlayVsPlayer(t)
	})
}

func playerDailyKey(dateRange string, op stats.AggOp) core.CacheKey {
	return core.NewCacheKey(run.KindPlayerDaily, "date_range", dateRange, "agg", string(op))
}

// PlayerDaily aggregates price per date and player over a date range
func (s *MaterializeService) PlayerDaily(dateRange string, op stats.AggOp) (*aggregate.Grouped, error) {
	w, err := s.worker()
	if err != nil {
		return nil, err
	}
	return w.playerDaily(dateRange, op)
}

func (w *worker) playerDaily(dateRange string, op stats.AggOp) (*aggregate.Grouped, error) {
	return cache.Fetch(w.memo, playerDailyKey(dateRange, op), func() (*aggregate.Grouped, error) {
		t, err := w.rangeTable(dateRange)
		if err != nil {
			return nil, err
		}
		return w.agg.PlayerDaily(t, op)
	})
}

func gameWindowKey(name string) core.CacheKey {
	return core.NewCacheKey(run.KindGameWindow, "window", name)
}

// GameWindow summarizes the day before a game, the game and the day after
func (s *MaterializeService) GameWindow(name string) ([]significance.WindowSummary, error) {
	w, err := s.worker()
	if err != nil {
		return nil, err
	}
	return w.gameWindow(name)
}

func (w *worker) gameWindow(name string) ([]significance.WindowSummary, error) {
	return cache.Fetch(w.memo, gameWindowKey(name), func() ([]significance.WindowSummary, error) {
		game, err := w.partitioner.Catalog().Lookup(name)
		if err != nil {
			return nil, err
		}
		p, err := w.partitioner.WithWindows(partition.GameBuffers(game)...)
		if err != nil {
			return nil, err
		}
		names := []string{partition.PreGame, partition.DuringGame, partition.PostGame}
		subsets, err := p.Windows(w.snap.Transactions, names...)
		if err != nil {
			return nil, err
		}
		out := make([]significance.WindowSummary, 0, len(names))
		for _, n := range names {
			ws := significance.WindowSummary{Window: n}
			if ws.Overall, err = w.agg.Summarize(subsets[n], stats.ModeOverall); err != nil {
				return nil, err
			}
			if ws.PerItem, err = w.agg.Summarize(subsets[n], stats.ModePerItem); err != nil {
				return nil, err
			}
			out = append(out, ws)
		}
		return out, nil
	})
}

func challengeKey(name string) core.CacheKey {
	return core.NewCacheKey(run.KindChallenge, "name", name)
}

// Challenge runs the timing family of a named challenge over its eligible
// moments. The challenge's week must have a weekly game window.
func (s *MaterializeService) Challenge(name string) (*ChallengeOutcome, error) {
	w, err := s.worker()
	if err != nil {
		return nil, err
	}
	return w.challenge(name)
}

func (w *worker) challenge(name string) (*ChallengeOutcome, error) {
	return cache.Fetch(w.memo, challengeKey(name), func() (*ChallengeOutcome, error) {
		var challenge *market.Challenge
		for i := range w.snap.Challenges {
			if w.snap.Challenges[i].Name == name {
				challenge = &w.snap.Challenges[i]
				break
			}
		}
		if challenge == nil {
			return nil, fmt.Errorf("%w: challenge %q", core.ErrNotFound, name)
		}

		game, err := w.partitioner.Catalog().Lookup(config.GameWindowName(challenge.Week, ChallengeGameSlot))
		if err != nil {
			return nil, fmt.Errorf("%w: no game window for week %d", core.ErrNotFound, challenge.Week)
		}
		window := core.NewWindow(challenge.Name, challenge.Start, challenge.End)
		p, err := w.partitioner.WithWindows(append(partition.GameBuffers(game), partition.ChallengeBuffers(window)...)...)
		if err != nil {
			return nil, err
		}

		mapping := w.tables.NameMapping()
		eligible, err := p.Partition(w.snap.Transactions, partition.Match("eligible", func(tx *market.Transaction) bool {
			return challenge.Eligible(tx, mapping)
		}))
		if err != nil {
			return nil, err
		}

		family, err := significance.NewFamily(challenge.Name, significance.ChallengeFamilySize)
		if err != nil {
			return nil, err
		}
		engine, err := significance.NewEngine(family, stats.CompareMean, w.logger)
		if err != nil {
			return nil, err
		}
		report, err := significance.NewChallengeTester(engine, w.agg, p, w.logger).Run(eligible)
		if err != nil {
			return nil, err
		}

		during, err := p.Partition(eligible, partition.InWindow(partition.DuringChallenge))
		if err != nil {
			return nil, err
		}
		items, err := w.agg.ItemSummary(during)
		if err != nil {
			return nil, err
		}
		averages, err := packsim.TierAverages(items)
		if err != nil {
			return nil, err
		}
		return &ChallengeOutcome{
			Name:        challenge.Name,
			Report:      report,
			Averages:    averages,
			RewardValue: stats.Value(packsim.RewardValue(challenge.ExpectedContents(), averages)),
		}, nil
	})
}

func mintKey(drop string) core.CacheKey {
	return core.NewCacheKey(run.KindMint, "drop", drop)
}

// Mint compares moments minted in a pack drop with other moments of the
// same player and tier
func (s *MaterializeService) Mint(drop string) (verdict.Record, error) {
	w, err := s.worker()
	if err != nil {
		return verdict.Record{}, err
	}
	return w.mint(drop)
}

func (w *worker) mint(drop string) (verdict.Record, error) {
	return cache.Fetch(w.memo, mintKey(drop), func() (verdict.Record, error) {
		window, err := w.partitioner.Catalog().Lookup(drop)
		if err != nil {
			return verdict.Record{}, err
		}
		family, err := significance.NewFamily(drop, significance.MintFamilySize)
		if err != nil {
			return verdict.Record{}, err
		}
		engine, err := significance.NewEngine(family, stats.CompareMean, w.logger)
		if err != nil {
			return verdict.Record{}, err
		}
		annotated := enrich.AnnotateMints(w.snap.Transactions, window, w.tables.NameMapping())
		return significance.MintComparison(engine, w.agg, annotated)
	})
}

// Lookup returns a result by canonical key. A memo miss recomputes the
// result from the loaded snapshot; the result repository serves keys that
// cannot be recomputed, e.g. before any snapshot is loaded.
func (s *MaterializeService) Lookup(ctx context.Context, canonical string) (*run.Result, error) {
	if kind := kindOf(canonical); kind != "" {
		if v, ok := s.live.GetCanonical(canonical); ok {
			return memoResult(canonical, kind, v)
		}
		if w, err := s.worker(); err == nil {
			if spec, ok := w.spec(canonical); ok {
				v, err := spec.compute(w)
				if err != nil {
					return nil, err
				}
				return memoResult(canonical, kind, v)
			}
		}
	}
	if s.results == nil {
		return nil, fmt.Errorf("%w %q", core.ErrResultNotFound, canonical)
	}
	return s.results.GetResult(ctx, canonical)
}

func memoResult(canonical, kind string, v interface{}) (*run.Result, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &run.Result{
		Key:     canonical,
		Hash:    core.NewHash([]byte(canonical)),
		Kind:    kind,
		Payload: payload,
	}, nil
}

// Keys lists the result keys of one kind, or of every kind. With a result
// repository these are the stored keys; otherwise every key the loaded
// snapshot can answer.
func (s *MaterializeService) Keys(ctx context.Context, kind string) ([]string, error) {
	if s.results != nil {
		return s.results.ListKeys(ctx, kind)
	}
	w, err := s.worker()
	if err != nil {
		return []string{}, nil
	}
	out := []string{}
	for _, spec := range append(w.specs[:len(w.specs):len(w.specs)], w.challengeSpecs()...) {
		if kind == "" || spec.kind == kind {
			out = append(out, spec.key.Canonical())
		}
	}
	return out, nil
}

// kindOf returns the result kind of a canonical key, or "" for keys that
// are not results
func kindOf(canonical string) string {
	function, _, _ := strings.Cut(canonical, "--")
	for _, k := range run.Kinds() {
		if k == function {
			return k
		}
	}
	return ""
}
