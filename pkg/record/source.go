package record

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

// Source produces the full record set of a Store.
type Source interface {
	Fetch(ctx context.Context) ([]*model.Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]*model.Record, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]*model.Record, error) {
	return f(ctx)
}

// Static returns a Source serving records as given. Records are not copied.
func Static(records []*model.Record) Source {
	return SourceFunc(func(ctx context.Context) ([]*model.Record, error) {
		return records, nil
	})
}

//go:embed schema/record.json
var recordSchemaData []byte

var recordSchema = mustCompileSchema(recordSchemaData)

func mustCompileSchema(data []byte) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("invalid record schema: %v", err))
	}
	return schema
}

type jsonSource struct {
	storage adapter.Storage
	key     string
}

// NewJSONSource reads a JSON array of records stored at key. Elements that do
// not match the record schema are logged and skipped.
func NewJSONSource(storage adapter.Storage, key string) Source {
	return &jsonSource{storage: storage, key: key}
}

func (s *jsonSource) Fetch(ctx context.Context) ([]*model.Record, error) {
	data, err := adapter.ReadAll(ctx, s.storage, s.key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return nil, goerr.Wrap(model.ErrSourceNotFound, "record source does not exist", goerr.V("key", s.key))
		}
		return nil, goerr.Wrap(err, "failed to read record source", goerr.V("key", s.key))
	}

	return DecodeJSON(ctx, data)
}

type wireRecord struct {
	Sender    string          `json:"sender"`
	Receiver  json.RawMessage `json:"receiver"`
	Subject   string          `json:"subject"`
	Timestamp string          `json:"timestamp"`
	Body      string          `json:"body"`
}

// DecodeJSON decodes a JSON array of records. A document that is not an array
// is an error; a malformed element is skipped with a warning.
func DecodeJSON(ctx context.Context, data []byte) ([]*model.Record, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, goerr.Wrap(err, "record source is not a JSON array")
	}

	logger := logging.From(ctx)
	records := make([]*model.Record, 0, len(elements))
	for i, element := range elements {
		record, err := decodeElement(element)
		if err != nil {
			logger.Warn("skip record", "index", i, "error", goerr.Wrap(model.ErrParseSkipped, err.Error(), goerr.V("index", i)))
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func decodeElement(element json.RawMessage) (*model.Record, error) {
	var instance any
	if err := json.Unmarshal(element, &instance); err != nil {
		return nil, goerr.Wrap(err, "invalid JSON element")
	}
	if result := recordSchema.Validate(instance); !result.IsValid() {
		return nil, goerr.New("record does not match schema")
	}

	var wire wireRecord
	if err := json.Unmarshal(element, &wire); err != nil {
		return nil, goerr.Wrap(err, "failed to decode record")
	}

	receivers, err := decodeReceivers(wire.Receiver)
	if err != nil {
		return nil, err
	}

	return &model.Record{
		Sender:     wire.Sender,
		Receivers:  receivers,
		Subject:    wire.Subject,
		Timestamp:  wire.Timestamp,
		Body:       wire.Body,
		ParsedTime: ParseTimestamp(wire.Timestamp),
	}, nil
}

// decodeReceivers accepts a list, a single address or a comma separated
// address string.
func decodeReceivers(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, goerr.Wrap(err, "invalid receiver field")
	}
	return splitAddresses(single), nil
}

func splitAddresses(s string) []string {
	receivers := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			receivers = append(receivers, part)
		}
	}
	return receivers
}
