package eth2

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// u64 is a Beacon API decimal-string number.
type u64 string

func (u u64) Uint64() (uint64, error) {
	v, err := strconv.ParseUint(string(u), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "not a uint64: %q", string(u))
	}
	return v, nil
}

func (u u64) String() string {
	return string(u)
}

type headerResponse struct {
	Data struct {
		Header struct {
			Message struct {
				Slot u64 `json:"slot"`
			} `json:"message"`
		} `json:"header"`
	} `json:"data"`
}

type blockResponse struct {
	Version string `json:"version"`
	Data    struct {
		Message blockMessage `json:"message"`
	} `json:"data"`
}

type blockMessage struct {
	Slot          u64       `json:"slot"`
	ProposerIndex u64       `json:"proposer_index"`
	Body          blockBody `json:"body"`
}

type blockBody struct {
	Graffiti          string              `json:"graffiti"`
	Attestations      []*attestation      `json:"attestations"`
	ProposerSlashings []*proposerSlashing `json:"proposer_slashings"`
	AttesterSlashings []*attesterSlashing `json:"attester_slashings"`
	VoluntaryExits    []*voluntaryExit    `json:"voluntary_exits"`
}

type attestation struct {
	AggregationBits string `json:"aggregation_bits"`
	Data            struct {
		Slot  u64 `json:"slot"`
		Index u64 `json:"index"`
	} `json:"data"`
}

type proposerSlashing struct {
	SignedHeader1 struct {
		Message struct {
			Slot          u64 `json:"slot"`
			ProposerIndex u64 `json:"proposer_index"`
		} `json:"message"`
	} `json:"signed_header_1"`
}

type indexedAttestation struct {
	AttestingIndices []string `json:"attesting_indices"`
}

type attesterSlashing struct {
	Attestation1 indexedAttestation `json:"attestation_1"`
	Attestation2 indexedAttestation `json:"attestation_2"`
}

type voluntaryExit struct {
	Message struct {
		Epoch          u64 `json:"epoch"`
		ValidatorIndex u64 `json:"validator_index"`
	} `json:"message"`
}

type validatorsResponse struct {
	Data []*validatorEntry `json:"data"`
}

type validatorEntry struct {
	Index     u64    `json:"index"`
	Balance   u64    `json:"balance"`
	Status    string `json:"status"`
	Validator struct {
		Pubkey           string `json:"pubkey"`
		EffectiveBalance u64    `json:"effective_balance"`
		Slashed          bool   `json:"slashed"`
	} `json:"validator"`
}

type headEvent struct {
	Slot  u64    `json:"slot"`
	Block string `json:"block"`
}

func unmarshalEvent(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
