// Package enricher joins raw real rows and synthetic rows into unified
// validator records, computing the derived features (trust score, message
// entropy, peer feedback, uptime, behavior label) and the daily aggregate
// tables.
package enricher

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/db"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "enricher")

var (
	recordsEnriched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enricher_records_total",
		Help: "Total number of unified validator records produced.",
	})
	duplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enricher_duplicates_dropped_total",
		Help: "Total number of records dropped by fingerprint dedup.",
	})
)

// Chain identifies one collected chain within the store.
type Chain struct {
	ID      string
	Network string
}

// Enricher reads the store and emits unified records plus aggregates.
type Enricher struct {
	db     db.Database
	root   string
	chains []Chain
}

// New creates an enricher over the given chains. root is the dataset root
// for curated/features partition output; empty disables file output.
func New(d db.Database, root string, chains []Chain) *Enricher {
	return &Enricher{db: d, root: root, chains: chains}
}

// Enrich builds unified validator records from every collected chain and the
// synthetic store, dedups them by fingerprint, persists them, and writes the
// aggregate tables.
func (e *Enricher) Enrich(ctx context.Context) ([]*dataset.ValidatorRecord, error) {
	records := make([]*dataset.ValidatorRecord, 0)
	for _, chain := range e.chains {
		recs, err := e.enrichChain(ctx, chain)
		if err != nil {
			return nil, errors.Wrapf(err, "could not enrich chain %s", chain.ID)
		}
		records = append(records, recs...)
	}
	synthetic, err := e.enrichSynthetic(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not enrich synthetic rows")
	}
	records = append(records, synthetic...)

	records = dedup(records)
	sort.Slice(records, func(i, j int) bool {
		if records[i].ValidatorID != records[j].ValidatorID {
			return records[i].ValidatorID < records[j].ValidatorID
		}
		return records[i].Timestamp < records[j].Timestamp
	})

	if err := e.db.SaveEnrichedRecords(ctx, records); err != nil {
		return nil, errors.Wrap(err, "could not persist enriched records")
	}
	if e.root != "" {
		if err := e.writeAggregates(ctx); err != nil {
			return nil, err
		}
	}
	recordsEnriched.Add(float64(len(records)))
	log.WithField("records", len(records)).Info("Enrichment complete")
	return records, nil
}

// enrichChain turns one chain's raw tables into daily validator records.
func (e *Enricher) enrichChain(ctx context.Context, chain Chain) ([]*dataset.ValidatorRecord, error) {
	validators, err := e.db.ValidatorRows(ctx, chain.ID)
	if err != nil {
		return nil, err
	}
	blocks, err := e.db.BlockRows(ctx, chain.ID)
	if err != nil {
		return nil, err
	}
	penalties, err := e.db.PenaltyRows(ctx, chain.ID)
	if err != nil {
		return nil, err
	}
	performance, err := e.db.PerformanceRows(ctx, chain.ID)
	if err != nil {
		return nil, err
	}

	// Cosmos blocks name proposers by consensus address while validator rows
	// carry operator addresses, so this join only attributes proposals on
	// chains whose IDs match (eth2 indices). Cosmos proposal counts stay zero
	// until an address-book source is collected.
	proposalsBy := make(map[string]uint64)
	for _, b := range blocks {
		proposalsBy[b.Proposer]++
	}
	slashingsBy := make(map[string]uint64)
	missedBy := make(map[string]uint64)
	for _, p := range penalties {
		switch p.Kind {
		case dataset.PenaltyProposerSlashing, dataset.PenaltyAttesterSlashing, dataset.PenaltyTombstoned:
			slashingsBy[p.ValidatorID]++
		case dataset.PenaltyMissedBlocks:
			missedBy[p.ValidatorID] += p.Value
		}
	}
	feedbackBy := make(map[string]float64)
	for _, perf := range performance {
		feedbackBy[indexKey(perf.ValidatorIndex)] = effectivenessProxy(perf)
	}

	// Real records describe one validator over one UTC day: the day the
	// window was collected.
	day := time.Now().UTC().Truncate(24 * time.Hour).Format(time.RFC3339)
	assigned := assignedDuties(blocks)

	records := make([]*dataset.ValidatorRecord, 0, len(validators))
	for _, v := range validators {
		missed := missedBy[v.Index]
		if missed > assigned {
			missed = assigned
		}
		slashings := slashingsBy[v.Index]
		if v.Slashed && slashings == 0 {
			slashings = 1
		}
		uptime := uptimeFromCounts(assigned, missed, v)
		missRate := 0.0
		if assigned > 0 {
			missRate = float64(missed) / float64(assigned)
		}
		trust := TrustScore(uptime, missRate, slashings > 0)
		hist := map[string]uint64{
			"attestation_hit":  assigned - missed,
			"attestation_miss": missed,
			"proposal_hit":     proposalsBy[v.Index],
			"proposal_miss":    0,
			"slashing":         slashings,
		}
		feedback := params.DatasetSpec().NeutralPeerFeedback
		if fb, ok := feedbackBy[v.Index]; ok {
			feedback = fb
		}
		rec := &dataset.ValidatorRecord{
			ValidatorID:        v.Index,
			Timestamp:          day,
			Uptime:             Round4(uptime),
			MissedAttestations: missed,
			MissedProposals:    0,
			SlashingEvents:     slashings,
			StakeAmount:        stakeDisplayUnits(v),
			TrustScore:         trust,
			MessageEntropy:     MessageEntropy(hist),
			PeerFeedback:       Round4(feedback),
			Source:             dataset.SourceReal,
		}
		rec.BehaviorLabel = BehaviorLabel(rec.Uptime, rec.TrustScore, rec.SlashingEvents)
		records = append(records, rec)
	}
	return records, nil
}

// enrichSynthetic buckets simulator rows by (validator, UTC day) and folds
// each bucket into one record. Synthetic records keep the generating
// agent's ground-truth profile as the label.
func (e *Enricher) enrichSynthetic(ctx context.Context) ([]*dataset.ValidatorRecord, error) {
	rows, err := e.db.SyntheticRows(ctx)
	if err != nil {
		return nil, err
	}
	type bucketKey struct {
		validator string
		day       string
	}
	buckets := make(map[bucketKey][]*dataset.SyntheticEpochRow)
	order := make([]bucketKey, 0)
	for _, row := range rows {
		day := row.Timestamp
		if ts, err := time.Parse(time.RFC3339, row.Timestamp); err == nil {
			day = ts.UTC().Truncate(24 * time.Hour).Format(time.RFC3339)
		}
		k := bucketKey{validator: row.ValidatorID, day: day}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], row)
	}

	records := make([]*dataset.ValidatorRecord, 0, len(buckets))
	for _, k := range order {
		bucket := buckets[k]
		var assigned, attested, missedProposals, slashings uint64
		gossip := make(map[string]uint64)
		var feedbackSum, stakeSum float64
		profile := bucket[0].Profile
		for _, row := range bucket {
			assigned += row.DutyBits.Len()
			attested += row.DutyBits.Count()
			missedProposals += row.MissedProposals
			slashings += row.Slashings
			for kind, count := range row.Gossip {
				gossip[kind] += count
			}
			feedbackSum += row.PeerFeedback
			stakeSum += row.StakeAmount
		}
		uptime := 0.0
		if assigned > 0 {
			uptime = float64(attested) / float64(assigned)
		}
		missRate := 1 - uptime
		rec := &dataset.ValidatorRecord{
			ValidatorID:        k.validator,
			Timestamp:          k.day,
			Uptime:             Round4(uptime),
			MissedAttestations: assigned - attested,
			MissedProposals:    missedProposals,
			SlashingEvents:     slashings,
			StakeAmount:        Round4(stakeSum / float64(len(bucket))),
			TrustScore:         TrustScore(uptime, missRate, slashings > 0),
			MessageEntropy:     MessageEntropy(gossip),
			PeerFeedback:       Round4(feedbackSum / float64(len(bucket))),
			BehaviorLabel:      profile,
			Source:             dataset.SourceSynthetic,
		}
		records = append(records, rec)
	}
	return records, nil
}

// dedup drops later records with an already-seen fingerprint. First record
// wins.
func dedup(records []*dataset.ValidatorRecord) []*dataset.ValidatorRecord {
	seen := make(map[uint64]bool, len(records))
	out := records[:0]
	dropped := 0
	for _, rec := range records {
		fp := rec.Fingerprint()
		if seen[fp] {
			dropped++
			continue
		}
		seen[fp] = true
		out = append(out, rec)
	}
	if dropped > 0 {
		duplicatesDropped.Add(float64(dropped))
		log.WithField("dropped", dropped).Warn("Dropped duplicate records")
	}
	return out
}

func uptimeFromCounts(assigned, missed uint64, v *dataset.ValidatorRow) float64 {
	if assigned > 0 {
		return float64(assigned-missed) / float64(assigned)
	}
	// Without duty counts, fall back to the validator set status.
	if v.Status == "" || v.Status == "active_ongoing" || v.Status == "BOND_STATUS_BONDED" {
		return 1
	}
	return 0
}

// stakeDisplayUnits converts a raw balance into the chain's display unit.
func stakeDisplayUnits(v *dataset.ValidatorRow) float64 {
	gweiPerEth := float64(params.DatasetSpec().GweiPerEth)
	balance := float64(v.Balance)
	if v.EffectiveBalance > 0 {
		balance = float64(v.EffectiveBalance)
	}
	return balance / gweiPerEth
}

// effectivenessProxy maps an explorer performance row onto [0,1] peer
// feedback: neutral 0.5 shifted by whether the validator gained or lost
// balance over the last week.
func effectivenessProxy(perf *dataset.PerformanceRow) float64 {
	switch {
	case perf.Balance7d > 0:
		return 0.75
	case perf.Balance7d < 0:
		return 0.25
	default:
		return params.DatasetSpec().NeutralPeerFeedback
	}
}

func indexKey(idx uint64) string {
	return strconv.FormatUint(idx, 10)
}

func assignedDuties(blocks []*dataset.BlockRow) uint64 {
	if len(blocks) == 0 {
		return 0
	}
	// One attestation duty per collected epoch.
	slots := params.DatasetSpec().SlotsPerEpoch
	return (uint64(len(blocks)) + slots - 1) / slots
}
