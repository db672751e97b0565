package exporter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiidy/internal/reconcile"
)

func sampleRecords() []reconcile.Record {
	return []reconcile.Record{
		{Ticker: "ABCD11", Date: "01/03/2024", Value: "1,23"},
		{Ticker: "EFGH11"},
	}
}

func TestWriteIncludesBOMAndHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(nil).Write(&buf, sampleRecords()))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, bom))
	assert.Equal(t,
		"FII,Data Base,Rendimento\nABCD11,01/03/2024,\"1,23\"\nEFGH11,,\n",
		string(out[len(bom):]))
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "records.csv")
	require.NoError(t, NewCSVWriter(nil).WriteFile(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ABCD11,01/03/2024")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWritePropagatesErrors(t *testing.T) {
	err := NewCSVWriter(nil).Write(failingWriter{}, sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOM")
}
