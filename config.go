package fankit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a FanKit from a JSON file, or YAML when path ends with .yaml/.yml.
func LoadConfig(path string) (*FanKit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed reading config file %s", path)
	}

	return ParseConfig(content, filepath.Ext(path))
}

func ParseConfig(content []byte, ext string) (fk *FanKit, err error) {
	fk = &FanKit{}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, fk)
		if err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling yaml config")
		}
	default:
		err = json.Unmarshal(content, fk)
		if err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling json config")
		}
	}

	err = fk.Validate()
	if err != nil {
		return nil, err
	}
	return fk, nil
}

func (fk *FanKit) Validate() error {
	if len(fk.Fans) == 0 {
		return errors.New("no fans configured")
	}

	names := make(map[string]bool)
	for _, fc := range fk.Fans {
		err := fc.Validate()
		if err != nil {
			return errors.Wrap(err, "invalid config")
		}

		id := fanUniqueId(fc.Name)
		if names[id] {
			return errors.Errorf("invalid config: duplicated fan %s", fc.Name)
		}
		names[id] = true
	}

	if fk.Gpio == nil && fk.Mock == nil {
		return errors.New("invalid config: no hub configured")
	}

	return nil
}
