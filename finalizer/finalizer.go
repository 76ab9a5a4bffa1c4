// Package finalizer validates the enriched records against the dataset
// schema, serializes the final-layer exports, and signs the run off with a
// checksummed manifest.
package finalizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/db"
	"github.com/byzantron-research/aibyz-dataset/io/file"
	"github.com/go-playground/validator/v10"
	"github.com/k0kubun/go-ansi"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "finalizer")

var (
	recordsExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalizer_records_exported_total",
		Help: "Total number of validator records exported to the final layer.",
	})
	bytesExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalizer_bytes_exported_total",
		Help: "Total bytes written to the final layer, manifest included.",
	})
)

// TableValidatorRecords is the single table of the final layer.
const TableValidatorRecords = "validator_records"

var validate = validator.New()

// Config options for the finalizer.
type Config struct {
	Database    db.Database
	DatasetRoot string
	// JSONLines switches the JSON export from one array to one object per
	// line.
	JSONLines bool
	// DisableProgress silences the terminal progress bar, for tests and
	// non-interactive runs.
	DisableProgress bool
}

// Finalizer exports the enriched records and writes the run manifest.
type Finalizer struct {
	cfg *Config
}

// New creates a finalizer writing under cfg.DatasetRoot.
func New(cfg *Config) *Finalizer {
	return &Finalizer{cfg: cfg}
}

// Finalize validates every enriched record, writes the final-layer CSV and
// JSON partitions, and writes MANIFEST.json at the dataset root. The
// manifest is also persisted to the store under its run ID.
func (f *Finalizer) Finalize(ctx context.Context) (*Manifest, error) {
	records, err := f.cfg.Database.EnrichedRecords(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not read enriched records")
	}
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	p := f.partition()
	csvRows := make([][]string, 0, len(records))
	bar := initializeProgressBar(len(records), "Exporting validator records", f.cfg.DisableProgress)
	for _, rec := range records {
		csvRows = append(csvRows, rec.CSVRecord())
		if err := bar.Add(1); err != nil {
			log.WithError(err).Debug("Could not advance progress bar")
		}
	}
	if err := p.WriteCSV(dataset.RecordCSVHeader, csvRows, f.provenance(len(records))); err != nil {
		return nil, errors.Wrap(err, "could not write csv export")
	}
	if err := f.writeJSON(p, records); err != nil {
		return nil, errors.Wrap(err, "could not write json export")
	}

	manifest, err := f.writeManifest(ctx, records, p)
	if err != nil {
		return nil, errors.Wrap(err, "could not write manifest")
	}
	recordsExported.Add(float64(len(records)))
	logSummary(manifest)
	return manifest, nil
}

// validateRecords enforces the record schema. The first invalid record
// aborts the export, naming its index and offending field.
func validateRecords(records []*dataset.ValidatorRecord) error {
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return errors.Errorf(
					"record %d (validator %s) invalid: field %s failed %q constraint",
					i, rec.ValidatorID, verrs[0].Field(), verrs[0].Tag(),
				)
			}
			return errors.Wrapf(err, "record %d invalid", i)
		}
	}
	return nil
}

func (f *Finalizer) writeJSON(p *dataset.Partition, records []*dataset.ValidatorRecord) error {
	if !f.cfg.JSONLines {
		return p.WriteJSON(records, len(records), f.provenance(len(records)))
	}
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return file.WriteFile(p.PartPath("jsonl"), buf.Bytes())
}

func (f *Finalizer) partition() *dataset.Partition {
	return &dataset.Partition{
		Root:    f.cfg.DatasetRoot,
		Layer:   dataset.LayerFinal,
		Table:   TableValidatorRecords,
		ChainID: "all",
		Network: "all",
		Date:    time.Now().UTC(),
	}
}

func (f *Finalizer) provenance(rows int) *dataset.Provenance {
	return &dataset.Provenance{
		Source:        "finalizer",
		APIVersion:    "n/a",
		Collector:     "pipeline",
		ChainID:       "all",
		Network:       "all",
		Dataset:       TableValidatorRecords,
		Rows:          rows,
		SchemaVersion: params.DatasetSpec().SchemaVersion,
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
