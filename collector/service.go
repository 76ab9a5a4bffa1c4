// Package collector orchestrates the chain clients: windowed batch
// collection with a bounded worker pool, incremental watch-mode collection
// driven by epoch ticks and head events, and raw-layer partition output.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/db"
	"github.com/byzantron-research/aibyz-dataset/time/epochs"
	lru "github.com/hashicorp/golang-lru"
	"github.com/k0kubun/go-ansi"
	"github.com/paulbellamy/ratecounter"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// seenCacheSize bounds the per-process cache of already-fetched units.
const seenCacheSize = 1 << 16

// Chain is one collectible network. Unit granularity is a slot on slotted
// chains and a block height elsewhere.
type Chain interface {
	ChainID() string
	Network() string
	Lookback() uint64
	Head(ctx context.Context) (uint64, error)
	Unit(ctx context.Context, height uint64) (*dataset.RawBatch, error)
	Snapshot(ctx context.Context, tracked []string) (*dataset.RawBatch, error)
}

// HeadStreamer is implemented by chains that push head updates, sparing the
// watch loop from polling.
type HeadStreamer interface {
	StreamHeads(ctx context.Context, heads chan<- uint64) error
}

// PerformanceClient fetches per-validator performance snapshots from an
// external explorer.
type PerformanceClient interface {
	Performance(ctx context.Context, index uint64) (*dataset.PerformanceRow, error)
}

// Config holds the collector service dependencies.
type Config struct {
	Database    db.Database
	Chains      []Chain
	Performance PerformanceClient
	DatasetRoot string
	// TrackedFile is the validator allowlist path; empty tracks everything.
	TrackedFile string
	// Ticker drives watch mode. Batch collection ignores it.
	Ticker          epochs.Ticker
	DisableProgress bool
}

// Service collects raw telemetry from every configured chain.
type Service struct {
	cfg     *Config
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *Tracker
	seen    *lru.Cache
	runErr  error
}

// NewService creates a collector service.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.Database == nil {
		return nil, errors.New("collector requires a database")
	}
	tracker, err := NewTracker(cfg.TrackedFile)
	if err != nil {
		return nil, err
	}
	seen, err := lru.New(seenCacheSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{cfg: cfg, ctx: ctx, cancel: cancel, tracker: tracker, seen: seen}, nil
}

// Collect runs one batch pass over every chain: walk the window since the
// last progress mark, snapshot the validator sets, persist, and write the
// raw partitions.
func (s *Service) Collect(ctx context.Context) error {
	for _, chain := range s.cfg.Chains {
		if err := s.collectChain(ctx, chain); err != nil {
			return errors.Wrapf(err, "could not collect chain %s", chain.ChainID())
		}
	}
	return nil
}

func (s *Service) collectChain(ctx context.Context, chain Chain) error {
	head, err := chain.Head(ctx)
	if err != nil {
		return errors.Wrap(err, "could not probe head")
	}
	from := uint64(0)
	if head+1 > chain.Lookback() {
		from = head + 1 - chain.Lookback()
	}
	mark, ok, err := s.cfg.Database.ProgressMark(ctx, chain.ChainID(), dataset.TableBlocks)
	if err != nil {
		return err
	}
	if ok && mark+1 > from {
		from = mark + 1
	}

	merged := &dataset.RawBatch{ChainID: chain.ChainID(), Network: chain.Network()}
	if from <= head {
		if err := s.collectWindow(ctx, chain, from, head, merged); err != nil {
			return err
		}
	} else {
		log.WithField("chain", chain.ChainID()).WithField("head", head).Debug("No new units since last mark")
	}

	snap, err := chain.Snapshot(ctx, s.tracker.Tracked())
	if err != nil {
		return errors.Wrap(err, "could not snapshot validator set")
	}
	mergeBatch(merged, snap)
	s.collectPerformance(ctx, chain, merged)

	if err := s.cfg.Database.SaveRawBatch(ctx, merged); err != nil {
		return errors.Wrap(err, "could not persist raw batch")
	}
	if err := s.cfg.Database.SaveProgressMark(ctx, chain.ChainID(), dataset.TableBlocks, head); err != nil {
		return errors.Wrap(err, "could not persist progress mark")
	}
	countRows(merged)
	if s.cfg.DatasetRoot != "" {
		if err := s.writeRawPartitions(chain, merged); err != nil {
			return err
		}
	}
	log.WithField("chain", chain.ChainID()).
		WithField("from", from).
		WithField("head", head).
		WithField("rows", merged.Rows()).
		Info("Collection pass complete")
	return nil
}

// collectWindow walks [from, head] with a bounded worker pool.
func (s *Service) collectWindow(ctx context.Context, chain Chain, from, head uint64, merged *dataset.RawBatch) error {
	var mu sync.Mutex
	bar := initializeProgressBar(
		int(head-from+1),
		fmt.Sprintf("Collecting %s units %d-%d", chain.ChainID(), from, head),
		s.cfg.DisableProgress,
	)
	counter := ratecounter.NewRateCounter(time.Second)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan uint64)
	g.Go(func() error {
		defer close(jobs)
		for unit := from; unit <= head; unit++ {
			select {
			case jobs <- unit:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	workers := int(params.DatasetSpec().MaxWorkers)
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for unit := range jobs {
				key := fmt.Sprintf("%s:%d", chain.ChainID(), unit)
				if _, hit := s.seen.Get(key); hit {
					advance(bar)
					continue
				}
				batch, err := chain.Unit(gctx, unit)
				if err != nil {
					return err
				}
				s.seen.Add(key, true)
				counter.Incr(1)
				unitsProcessed.WithLabelValues(chain.ChainID()).Inc()
				collectionRate.WithLabelValues(chain.ChainID()).Set(float64(counter.Rate()))
				mu.Lock()
				mergeBatch(merged, batch)
				mu.Unlock()
				advance(bar)
			}
			return nil
		})
	}
	return g.Wait()
}

// collectPerformance pulls explorer snapshots for tracked numeric indices.
// Without an allowlist there is nothing to enumerate, so it is skipped.
func (s *Service) collectPerformance(ctx context.Context, chain Chain, merged *dataset.RawBatch) {
	if s.cfg.Performance == nil || chain.ChainID() != "eth2" {
		return
	}
	for _, id := range s.tracker.Tracked() {
		index, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		row, err := s.cfg.Performance.Performance(ctx, index)
		if err != nil {
			log.WithError(err).WithField("validator", index).Warn("Could not fetch performance snapshot")
			continue
		}
		merged.Performance = append(merged.Performance, row)
	}
}

func (s *Service) writeRawPartitions(chain Chain, batch *dataset.RawBatch) error {
	date := time.Now().UTC()
	tables := []struct {
		name string
		rows interface{}
		n    int
	}{
		{dataset.TableBlocks, batch.Blocks, len(batch.Blocks)},
		{dataset.TableValidators, batch.Validators, len(batch.Validators)},
		{dataset.TableAttestations, batch.Attestations, len(batch.Attestations)},
		{dataset.TablePenalties, batch.Penalties, len(batch.Penalties)},
		{dataset.TablePerformance, batch.Performance, len(batch.Performance)},
	}
	for _, table := range tables {
		p := &dataset.Partition{
			Root:    s.cfg.DatasetRoot,
			Layer:   dataset.LayerRaw,
			Table:   table.name,
			ChainID: chain.ChainID(),
			Network: chain.Network(),
			Date:    date,
		}
		prov := &dataset.Provenance{
			Source:     "api",
			APIVersion: "v1",
			Collector:  chain.ChainID(),
			ChainID:    chain.ChainID(),
			Network:    chain.Network(),
			Dataset:    table.name,
		}
		if err := p.WriteJSON(table.rows, table.n, prov); err != nil {
			return errors.Wrapf(err, "could not write %s partition", table.name)
		}
	}
	return nil
}

// Start runs the service in watch mode: the allowlist watcher, any head
// streams, and incremental collection on every epoch tick.
func (s *Service) Start() {
	log.WithField("chains", len(s.cfg.Chains)).Info("Starting collector service")
	if err := s.tracker.Watch(s.ctx); err != nil {
		log.WithError(err).Error("Could not watch tracked validators file")
	}

	heads := make(chan uint64, 1)
	for _, chain := range s.cfg.Chains {
		streamer, ok := chain.(HeadStreamer)
		if !ok {
			continue
		}
		go s.streamHeads(streamer, heads)
	}

	go func() {
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-s.tick():
				s.runIncremental()
			case slot := <-heads:
				log.WithField("slot", slot).Debug("Head event received")
				s.runIncremental()
			}
		}
	}()
}

// streamHeads keeps one chain's head subscription alive, backing off on
// failures so a flapping endpoint cannot spin the loop.
func (s *Service) streamHeads(streamer HeadStreamer, heads chan<- uint64) {
	for {
		err := streamer.StreamHeads(s.ctx, heads)
		if s.ctx.Err() != nil {
			return
		}
		log.WithError(err).Warn("Head stream ended, resubscribing")
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *Service) tick() <-chan uint64 {
	if s.cfg.Ticker == nil {
		return nil
	}
	return s.cfg.Ticker.C()
}

func (s *Service) runIncremental() {
	if err := s.Collect(s.ctx); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		log.WithError(err).Error("Incremental collection failed")
		s.runErr = err
		return
	}
	s.runErr = nil
}

// Stop the service.
func (s *Service) Stop() error {
	s.cancel()
	if s.cfg.Ticker != nil {
		s.cfg.Ticker.Done()
	}
	return nil
}

// Status returns the last collection error, if any.
func (s *Service) Status() error {
	return s.runErr
}

func mergeBatch(dst, src *dataset.RawBatch) {
	dst.Blocks = append(dst.Blocks, src.Blocks...)
	dst.Validators = append(dst.Validators, src.Validators...)
	dst.Attestations = append(dst.Attestations, src.Attestations...)
	dst.Penalties = append(dst.Penalties, src.Penalties...)
	dst.Performance = append(dst.Performance, src.Performance...)
}

func countRows(batch *dataset.RawBatch) {
	rowsCollected.WithLabelValues(batch.ChainID, dataset.TableBlocks).Add(float64(len(batch.Blocks)))
	rowsCollected.WithLabelValues(batch.ChainID, dataset.TableValidators).Add(float64(len(batch.Validators)))
	rowsCollected.WithLabelValues(batch.ChainID, dataset.TableAttestations).Add(float64(len(batch.Attestations)))
	rowsCollected.WithLabelValues(batch.ChainID, dataset.TablePenalties).Add(float64(len(batch.Penalties)))
	rowsCollected.WithLabelValues(batch.ChainID, dataset.TablePerformance).Add(float64(len(batch.Performance)))
}

func advance(bar *progressbar.ProgressBar) {
	if err := bar.Add(1); err != nil {
		log.WithError(err).Debug("Could not advance progress bar")
	}
}

func initializeProgressBar(numItems int, msg string, disabled bool) *progressbar.ProgressBar {
	if disabled {
		return progressbar.NewOptions(numItems, progressbar.OptionSetWriter(&bytes.Buffer{}))
	}
	return progressbar.NewOptions(
		numItems,
		progressbar.OptionFullWidth(),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
		progressbar.OptionSetDescription(msg),
	)
}
