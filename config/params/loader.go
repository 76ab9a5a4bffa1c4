package params

import (
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// LoadConfigFile loads a YAML file of dataset parameters over the active
// config and applies the result. Unknown keys are rejected so typos in a
// config file fail loudly instead of silently keeping the default.
func LoadConfigFile(configFileName string) error {
	yamlFile, err := ioutil.ReadFile(configFileName) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "failed to read dataset config file")
	}
	conf := DatasetSpec().Copy()
	if err := yaml.UnmarshalStrict(yamlFile, conf); err != nil {
		return errors.Wrap(err, "failed to parse dataset config yaml")
	}
	log.Debugf("Config file values: %+v", conf)
	OverrideDatasetConfig(conf)
	return nil
}
