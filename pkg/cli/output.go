package cli

import (
	"encoding/json"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// printResult writes v as indented JSON or as YAML with the same keys
func printResult(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal result")
	}

	switch format {
	case formatJSON, "":
		_, err = w.Write(append(data, '\n'))

	case formatYAML:
		// JSON is valid YAML; decoding into a node keeps the key order
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return goerr.Wrap(err, "failed to convert result to yaml")
		}
		blockStyle(&node)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return goerr.Wrap(err, "failed to write yaml")
		}
		err = enc.Close()

	default:
		return goerr.New("unsupported output format", goerr.V("format", format), goerr.V("supported", []string{formatJSON, formatYAML}))
	}

	if err != nil {
		return goerr.Wrap(err, "failed to write result")
	}
	return nil
}

// blockStyle drops the flow and quoting styles carried over from JSON
func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}
