// Package display renders command results in the output formats the CLI
// accepts.
package display

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/attrgen/errors"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "yaml", "toml"}

// Write marshals v in format and writes it to w. JSON is indented for
// humans.
func Write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal JSON")
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "failed to marshal YAML")
		}
		_, err = w.Write(data)
		return err
	case "toml":
		data, err := toml.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "failed to marshal TOML")
		}
		_, err = w.Write(data)
		return err
	default:
		return errors.WithHintf(
			errors.Newf("unsupported format: %s", format),
			"supported formats: %v", Formats,
		)
	}
}
