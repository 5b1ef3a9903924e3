package reporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/model"
	"neorecon/internal/core/scanner/port"
)

func sampleResults() model.ScanResults {
	return model.ScanResults{
		{IP: "10.0.0.2", Port: 80},
		{
			IP:   "10.0.0.1",
			Port: 22,
			Service: &model.ServiceInfo{
				Name:      "ssh",
				Version:   "2.0",
				Product:   "OpenSSH_7.2p2",
				ExtraInfo: "Ubuntu-4ubuntu2.8",
				Vulns:     []string{"CVE-2016-6210: User enumeration vulnerability"},
				Metadata:  map[string]string{"host_key_type": "ssh-ed25519"},
			},
			RawResponse: []byte("SSH-2.0-OpenSSH_7.2p2 Ubuntu-4ubuntu2.8\r\n"),
		},
		{IP: "10.0.0.1", Port: 6379, Service: &model.ServiceInfo{Name: "redis"}},
	}
}

func TestSorted(t *testing.T) {
	in := sampleResults()
	out := Sorted(in)
	require.Len(t, out, 3)
	assert.Equal(t, "10.0.0.1:22", out[0].Endpoint())
	assert.Equal(t, "10.0.0.1:6379", out[1].Endpoint())
	assert.Equal(t, "10.0.0.2:80", out[2].Endpoint())
	assert.Equal(t, "10.0.0.2", in[0].IP, "input untouched")

	mixed := Sorted(model.ScanResults{{IP: "::1", Port: 1}, {IP: "9.9.9.9", Port: 1}, {IP: "10.0.0.1", Port: 1}})
	assert.Equal(t, []string{"9.9.9.9", "10.0.0.1", "::1"}, []string{mixed[0].IP, mixed[1].IP, mixed[2].IP})
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextReporter(&buf).Report(context.Background(), sampleResults()))

	want := strings.Join([]string{
		"10.0.0.1:22",
		"  Service: ssh",
		"  Version: 2.0",
		"  Product: OpenSSH_7.2p2",
		"  Extra: Ubuntu-4ubuntu2.8",
		"  Vuln: CVE-2016-6210: User enumeration vulnerability",
		"  host_key_type: ssh-ed25519",
		"",
		"10.0.0.1:6379",
		"  Service: redis",
		"",
		"10.0.0.2:80",
		"  unknown service",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestTextReporter_SoftMatch(t *testing.T) {
	var buf bytes.Buffer
	res := model.ScanResults{{IP: "::1", Port: 21, Service: &model.ServiceInfo{Name: "ftp", Soft: true}}}
	require.NoError(t, NewTextReporter(&buf).Report(context.Background(), res))
	assert.Equal(t, "[::1]:21\n  Service: ftp?\n\n", buf.String())
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONReporter(&buf).Report(context.Background(), sampleResults()))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.1", got[0]["ip"])
	assert.EqualValues(t, 22, got[0]["port"])
	assert.Equal(t, "ssh", got[0]["service"].(map[string]interface{})["name"])
	assert.Contains(t, got[0]["raw_response"], "OpenSSH_7.2p2")
	assert.Nil(t, got[2]["service"])

	buf.Reset()
	require.NoError(t, NewJSONReporter(&buf).Report(context.Background(), nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleReporter(&buf).Report(context.Background(), sampleResults()))
	out := buf.String()
	assert.Contains(t, out, "OpenSSH_7.2p2")
	assert.Contains(t, out, "unknown")
	assert.Less(t, strings.Index(out, "6379"), strings.Index(out, "10.0.0.2"))

	buf.Reset()
	require.NoError(t, NewConsoleReporter(&buf).Report(context.Background(), nil))
	assert.Equal(t, "No open ports found.\n", buf.String())
}

func TestSaveFiles(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, SaveCsvResult(csvPath, sampleResults()))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\xEF\xBB\xBF")))

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, model.ScanResult{}.Headers(), records[0])
	assert.Equal(t, []string{"10.0.0.1", "22", "ssh", "OpenSSH_7.2p2", "2.0", "", "CVE-2016-6210: User enumeration vulnerability"}, records[1])

	jsonPath := filepath.Join(dir, "out.json")
	require.NoError(t, SaveJSONResult(jsonPath, sampleResults()))
	raw, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var got []model.ScanResult
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Len(t, got, 3)

	assert.Error(t, SaveCsvResult(filepath.Join(dir, "missing", "out.csv"), nil))
}

type failing struct{ err error }

func (f failing) Report(context.Context, model.ScanResults) error { return f.err }

func TestMultiReporter(t *testing.T) {
	var buf bytes.Buffer
	errA := errors.New("a")
	m := NewMultiReporter(failing{errA}, NewTextReporter(&buf))

	err := m.Report(context.Background(), sampleResults())
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, buf.String(), "10.0.0.1:22", "later reporters still run")

	assert.NoError(t, NewMultiReporter().Report(context.Background(), nil))
}

func TestFileReporters(t *testing.T) {
	dir := t.TempDir()
	jsonFile := NewJSONFileReporter(filepath.Join(dir, "out.json"))
	csvFile := NewCSVFileReporter(filepath.Join(dir, "out.csv"))
	var buf bytes.Buffer

	m := NewMultiReporter(NewTextReporter(&buf), jsonFile, csvFile)
	require.NoError(t, m.Report(context.Background(), sampleResults()))

	assert.Contains(t, buf.String(), "10.0.0.1:22")
	raw, err := os.ReadFile(jsonFile.Path())
	require.NoError(t, err)
	var got []model.ScanResult
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Len(t, got, 3)
	assert.FileExists(t, csvFile.Path())

	bad := NewJSONFileReporter(filepath.Join(dir, "missing", "out.json"))
	assert.Error(t, NewMultiReporter(bad, csvFile).Report(context.Background(), nil))
}

func TestNew(t *testing.T) {
	for format, want := range map[string]interface{}{
		"":      &TextReporter{},
		"text":  &TextReporter{},
		"json":  &JSONReporter{},
		"table": &ConsoleReporter{},
	} {
		r, err := New(format, io.Discard)
		require.NoError(t, err, format)
		assert.IsType(t, want, r, format)
	}
	_, err := New("xml", io.Discard)
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	p := NewProgressBar("scanning", io.Discard)
	// 未启动时忽略
	p.OnProgress(port.Progress{Completed: 1, Total: 10})
	p.Stop()

	require.NoError(t, p.Start(10))
	p.OnProgress(port.Progress{Completed: 4, Total: 10})
	p.OnProgress(port.Progress{Completed: 3, Total: 10})
	assert.Equal(t, 4, p.done)
	p.OnProgress(port.Progress{Completed: 10, Total: 10})
	assert.Equal(t, 10, p.done)
	p.Stop()
	p.Stop()
}
