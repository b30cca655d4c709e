package cli

import (
	"bytes"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/model"
)

func TestPrintResultJSON(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, printResult(&buf, formatJSON, &model.Answer{Query: "q", Response: "r", RelevantRecordCount: 2, Model: "m"}))
	gt.S(t, buf.String()).Contains(`"relevant_emails_count": 2`)
}

func TestPrintResultYAML(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, printResult(&buf, formatYAML, &model.Answer{Query: "q", Response: "r", RelevantRecordCount: 2, Model: "m"}))
	gt.Equal(t, buf.String(), "query: q\nresponse: r\nrelevant_emails_count: 2\nmodel: m\n")
}

func TestPrintResultRankedEntity(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, printResult(&buf, formatYAML, []model.RankedEntity{{ID: "a@x.com", Score: 3}}))
	gt.S(t, buf.String()).Contains("a@x.com")
	gt.S(t, buf.String()).NotContains(`"`)
}

func TestPrintResultUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	gt.Error(t, printResult(&buf, "xml", map[string]int{"a": 1}))
}
