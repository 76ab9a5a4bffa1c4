package finalizer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/crypto/hash"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/io/file"
	"github.com/byzantron-research/aibyz-dataset/runtime/version"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
)

// ManifestFileName is written at the dataset root after every export.
const ManifestFileName = "MANIFEST.json"

// ManifestFile describes one exported file with its checksum.
type ManifestFile struct {
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
}

// Manifest signs off one export run.
type Manifest struct {
	Dataset        string          `json:"dataset"`
	DatasetVersion string          `json:"dataset_version"`
	SchemaVersion  string          `json:"schema_version"`
	RunID          string          `json:"run_id"`
	Build          string          `json:"build"`
	ToolVersion    string          `json:"tool_version"`
	CreatedAt      string          `json:"created_at"`
	License        string          `json:"license"`
	Rows           int             `json:"rows"`
	RowsBySource   map[string]int  `json:"rows_by_source"`
	RowsByLabel    map[string]int  `json:"rows_by_label"`
	Files          []*ManifestFile `json:"files"`
}

func (f *Finalizer) writeManifest(ctx context.Context, records []*dataset.ValidatorRecord, p *dataset.Partition) (*Manifest, error) {
	cfg := params.DatasetSpec()
	m := &Manifest{
		Dataset:        cfg.DatasetName,
		DatasetVersion: cfg.DatasetVersion,
		SchemaVersion:  cfg.SchemaVersion,
		RunID:          uuid.New().String(),
		Build:          version.GetBuildData(),
		ToolVersion:    version.SemanticVersion,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		License:        cfg.License,
		Rows:           len(records),
		RowsBySource:   map[string]int{},
		RowsByLabel:    map[string]int{},
	}
	for _, rec := range records {
		m.RowsBySource[rec.Source]++
		m.RowsByLabel[rec.BehaviorLabel]++
	}

	paths, err := exportedFiles(p)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		mf, err := checksumFile(f.cfg.DatasetRoot, path)
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, mf)
		bytesExported.Add(float64(mf.Bytes))
	}

	enc, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(f.cfg.DatasetRoot, ManifestFileName)
	if err := file.WriteFile(manifestPath, enc); err != nil {
		return nil, errors.Wrapf(err, "could not write %s", ManifestFileName)
	}
	bytesExported.Add(float64(len(enc)))
	if err := f.cfg.Database.SaveManifest(ctx, m.RunID, enc); err != nil {
		return nil, errors.Wrap(err, "could not persist manifest")
	}
	return m, nil
}

// exportedFiles lists the part and provenance files of the final partition.
func exportedFiles(p *dataset.Partition) ([]string, error) {
	entries, err := os.ReadDir(p.Dir())
	if err != nil {
		return nil, errors.Wrapf(err, "could not list partition dir %s", p.Dir())
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(p.Dir(), entry.Name()))
	}
	return paths, nil
}

func checksumFile(root, path string) (*ManifestFile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from our own partition dir.
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	sum := hash.Hash(data)
	return &ManifestFile{
		Path:   filepath.ToSlash(rel),
		Bytes:  int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

func logSummary(m *Manifest) {
	var total int64
	for _, mf := range m.Files {
		total += mf.Bytes
	}
	log.WithFields(map[string]interface{}{
		"runID":     m.RunID,
		"rows":      m.Rows,
		"real":      m.RowsBySource[dataset.SourceReal],
		"synthetic": m.RowsBySource[dataset.SourceSynthetic],
		"size":      humanize.Bytes(uint64(total)),
	}).Info(aurora.Green("Export complete").String())
	for _, mf := range m.Files {
		log.Infof("  %s %s (%s)", aurora.Bold("✓").String(), mf.Path, humanize.Bytes(uint64(mf.Bytes)))
	}
}
