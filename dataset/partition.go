package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/io/file"
	"github.com/pkg/errors"
)

// Output layers, in pipeline order.
const (
	LayerRaw      = "raw"
	LayerCurated  = "curated"
	LayerFeatures = "features"
	LayerFinal    = "final"
)

// EmptySentinel marks a partition that was collected but produced no rows.
const EmptySentinel = ".empty"

// ProvenanceFileName is written next to every part file.
const ProvenanceFileName = "_PROVENANCE.json"

// Provenance records where a partition's rows came from.
type Provenance struct {
	Source        string `json:"source"`
	APIVersion    string `json:"api_version"`
	Collector     string `json:"collector"`
	ChainID       string `json:"chain_id"`
	Network       string `json:"network"`
	Dataset       string `json:"dataset"`
	Rows          int    `json:"rows"`
	Note          string `json:"note,omitempty"`
	SchemaVersion string `json:"schema_version"`
}

// Partition addresses one hive-style output directory:
//
//	<root>/<layer>/<table>/chain_id=<chain>/network=<net>/date=<YYYY-MM-DD>/
type Partition struct {
	Root    string
	Layer   string
	Table   string
	ChainID string
	Network string
	Date    time.Time
}

// Dir returns the partition directory path.
func (p *Partition) Dir() string {
	return filepath.Join(
		p.Root,
		p.Layer,
		p.Table,
		fmt.Sprintf("chain_id=%s", p.ChainID),
		fmt.Sprintf("network=%s", p.Network),
		fmt.Sprintf("date=%s", p.Date.UTC().Format("2006-01-02")),
	)
}

// PartPath returns the part file path for the given extension.
func (p *Partition) PartPath(ext string) string {
	return filepath.Join(p.Dir(), "part-0000."+ext)
}

func (p *Partition) prepare(prov *Provenance, rows int) (bool, error) {
	if err := file.MkdirAll(p.Dir()); err != nil {
		return false, errors.Wrapf(err, "could not create partition dir %s", p.Dir())
	}
	prov.Rows = rows
	if prov.SchemaVersion == "" {
		prov.SchemaVersion = params.DatasetSpec().SchemaVersion
	}
	if err := writeJSONFile(filepath.Join(p.Dir(), ProvenanceFileName), prov); err != nil {
		return false, errors.Wrap(err, "could not write provenance")
	}
	if rows == 0 {
		// No part file for empty partitions, just the sentinel.
		return false, file.WriteFile(filepath.Join(p.Dir(), EmptySentinel), []byte{})
	}
	return true, nil
}

// WriteJSON writes rows as a JSON array part file plus provenance. A zero
// row count produces the .empty sentinel instead of a part file.
func (p *Partition) WriteJSON(rows interface{}, n int, prov *Provenance) error {
	hasRows, err := p.prepare(prov, n)
	if err != nil || !hasRows {
		return err
	}
	return writeJSONFile(p.PartPath("json"), rows)
}

// WriteCSV writes the header and records as a CSV part file plus provenance.
func (p *Partition) WriteCSV(header []string, records [][]string, prov *Provenance) error {
	hasRows, err := p.prepare(prov, len(records))
	if err != nil || !hasRows {
		return err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "could not write csv header")
	}
	if err := w.WriteAll(records); err != nil {
		return errors.Wrap(err, "could not write csv records")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.WriteFile(p.PartPath("csv"), buf.Bytes())
}

func writeJSONFile(path string, v interface{}) error {
	enc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return file.WriteFile(path, enc)
}
