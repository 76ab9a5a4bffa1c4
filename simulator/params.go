package simulator

import (
	"io/ioutil"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// Parameters for a simulation of validator agents. Percentages carve the
// agent population into behavior profiles; whatever remains is honest.
type Parameters struct {
	NumValidators          uint64  `json:"num_validators"`
	NumEpochs              uint64  `json:"num_epochs"`
	UnstablePercent        float64 `json:"unstable_percent"`
	OfflinePercent         float64 `json:"offline_percent"`
	ByzantinePercent       float64 `json:"byzantine_percent"`
	ProposerSlashingProbab float64 `json:"proposer_slashing_probab"`
	AttesterSlashingProbab float64 `json:"attester_slashing_probab"`
	Seed                   int64   `json:"seed"`
}

// DefaultParams for launching a simulator.
func DefaultParams() *Parameters {
	return &Parameters{
		NumValidators:          128,
		NumEpochs:              16,
		UnstablePercent:        0.1,
		OfflinePercent:         0.1,
		ByzantinePercent:       0.05,
		ProposerSlashingProbab: 0.05,
		AttesterSlashingProbab: 0.05,
		Seed:                   42,
	}
}

// LoadScenarioFile reads simulation parameters from a YAML scenario file
// layered over the defaults.
func LoadScenarioFile(path string) (*Parameters, error) {
	b, err := ioutil.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "could not read scenario file")
	}
	p := DefaultParams()
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, errors.Wrap(err, "could not parse scenario file")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parameters) validate() error {
	if p.NumValidators == 0 {
		return errors.New("scenario needs at least one validator")
	}
	if p.NumEpochs == 0 {
		return errors.New("scenario needs at least one epoch")
	}
	total := p.UnstablePercent + p.OfflinePercent + p.ByzantinePercent
	if total > 1 {
		return errors.Errorf("profile percentages sum to %f, want <= 1", total)
	}
	return nil
}
