package enricher

import (
	"context"
	"strconv"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/pkg/errors"
)

// Aggregate table names of the features layer.
const (
	TableValidatorStatsDaily = "validator_stats_daily"
	TableTrustSignalsDaily   = "trust_signals_daily"
)

var validatorStatsHeader = []string{
	"date", "chain_id", "network", "num_validators", "avg_balance", "avg_effective_balance", "num_blocks",
}

var trustSignalsHeader = []string{
	"date", "chain_id", "network", "validator_id", "trust_score_v0", "penalty_count_v0",
}

// writeAggregates computes and writes the daily aggregate tables for every
// collected chain.
func (e *Enricher) writeAggregates(ctx context.Context) error {
	date := time.Now().UTC()
	for _, chain := range e.chains {
		if err := e.writeValidatorStats(ctx, chain, date); err != nil {
			return errors.Wrapf(err, "could not write %s for %s", TableValidatorStatsDaily, chain.ID)
		}
		if err := e.writeTrustSignals(ctx, chain, date); err != nil {
			return errors.Wrapf(err, "could not write %s for %s", TableTrustSignalsDaily, chain.ID)
		}
	}
	return nil
}

func (e *Enricher) writeValidatorStats(ctx context.Context, chain Chain, date time.Time) error {
	validators, err := e.db.ValidatorRows(ctx, chain.ID)
	if err != nil {
		return err
	}
	blocks, err := e.db.BlockRows(ctx, chain.ID)
	if err != nil {
		return err
	}
	var records [][]string
	if len(validators) > 0 {
		var balanceSum, effectiveSum float64
		for _, v := range validators {
			balanceSum += float64(v.Balance)
			effectiveSum += float64(v.EffectiveBalance)
		}
		n := float64(len(validators))
		records = append(records, []string{
			date.Format("2006-01-02"),
			chain.ID,
			chain.Network,
			strconv.Itoa(len(validators)),
			formatFloat(balanceSum / n),
			formatFloat(effectiveSum / n),
			strconv.Itoa(len(blocks)),
		})
	}
	p := e.partition(TableValidatorStatsDaily, chain, date)
	return p.WriteCSV(validatorStatsHeader, records, e.provenance(TableValidatorStatsDaily, chain))
}

func (e *Enricher) writeTrustSignals(ctx context.Context, chain Chain, date time.Time) error {
	validators, err := e.db.ValidatorRows(ctx, chain.ID)
	if err != nil {
		return err
	}
	penalties, err := e.db.PenaltyRows(ctx, chain.ID)
	if err != nil {
		return err
	}
	penaltyCount := make(map[string]uint64)
	for _, p := range penalties {
		penaltyCount[p.ValidatorID]++
	}
	records := make([][]string, 0, len(validators))
	for _, v := range validators {
		// trust_score_v0 is the effective balance standing in as a
		// v0 reliability signal, per the feature table's versioning.
		records = append(records, []string{
			date.Format("2006-01-02"),
			chain.ID,
			chain.Network,
			v.Index,
			formatFloat(float64(v.EffectiveBalance)),
			strconv.FormatUint(penaltyCount[v.Index], 10),
		})
	}
	p := e.partition(TableTrustSignalsDaily, chain, date)
	return p.WriteCSV(trustSignalsHeader, records, e.provenance(TableTrustSignalsDaily, chain))
}

func (e *Enricher) partition(table string, chain Chain, date time.Time) *dataset.Partition {
	return &dataset.Partition{
		Root:    e.root,
		Layer:   dataset.LayerFeatures,
		Table:   table,
		ChainID: chain.ID,
		Network: chain.Network,
		Date:    date,
	}
}

func (e *Enricher) provenance(table string, chain Chain) *dataset.Provenance {
	return &dataset.Provenance{
		Source:        "enricher",
		APIVersion:    "n/a",
		Collector:     "pipeline",
		ChainID:       chain.ID,
		Network:       chain.Network,
		Dataset:       table,
		SchemaVersion: params.DatasetSpec().SchemaVersion,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
