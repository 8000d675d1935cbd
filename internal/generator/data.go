package generator

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadDataFile decodes a JSON or YAML data file from the data directory.
func loadDataFile(fsys fs.FS, name string) (any, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, nil
	}
	if fsys == nil {
		return nil, fmt.Errorf("generator: data file %s requested without a data directory", name)
	}
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("generator: read data %s: %w", name, err)
	}

	var value any
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		err = json.Unmarshal(raw, &value)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &value)
	default:
		return nil, fmt.Errorf("generator: unsupported data file %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("generator: decode data %s: %w", name, err)
	}
	return value, nil
}
