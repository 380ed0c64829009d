package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenscan/warden/internal/finding"
)

func sampleReport() *finding.Report {
	report := finding.NewReport("deadbeef")
	report.Findings = []finding.Finding{
		finding.New("typo", "likely-misspelling", finding.SeverityInfo, "main.go", 10, `"recieve" looks like a misspelling of "receive"`),
	}
	report.SetFilesScanned(3)
	report.Finalize(time.Second, false, "test")

	return report
}

func TestRenderJSON_ProducesValidReport(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, renderJSON(&buf, sampleReport()))
	assert.Contains(t, buf.String(), `"analyzer": "typo"`)
}

func TestRenderTable_IncludesFindingCount(t *testing.T) {
	var buf bytes.Buffer

	renderTable(&buf, sampleReport(), true)
	assert.Contains(t, buf.String(), "1 findings")
}

func TestCheckFailOn_EmptyThresholdNeverFails(t *testing.T) {
	assert.NoError(t, checkFailOn(sampleReport(), ""))
}

func TestCheckFailOn_InfoThresholdFailsOnAnyFinding(t *testing.T) {
	assert.Error(t, checkFailOn(sampleReport(), "info"))
}
