package model

import (
	"encoding/json"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanTask_Address(t *testing.T) {
	v4 := ScanTask{Addr: netip.MustParseAddr("10.0.0.1"), Port: 22}
	assert.Equal(t, "10.0.0.1:22", v4.Address())

	v6 := ScanTask{Addr: netip.MustParseAddr("::1"), Port: 443}
	assert.Equal(t, "[::1]:443", v6.Address())
}

func TestTaskState_Transitions(t *testing.T) {
	paths := [][]TaskState{
		{StatePending, StateConnecting, StateClosedOrFiltered},
		{StatePending, StateConnecting, StateOpen, StateDone},
		{StatePending, StateConnecting, StateOpen, StateProbing, StateMatched, StateDone},
		{StatePending, StateConnecting, StateOpen, StateProbing, StateUnmatched, StateDone},
	}
	for _, path := range paths {
		for i := 0; i+1 < len(path); i++ {
			assert.Truef(t, path[i].CanTransition(path[i+1]), "%s -> %s", path[i], path[i+1])
		}
		assert.True(t, path[len(path)-1].Terminal())
	}

	assert.False(t, StatePending.CanTransition(StateOpen))
	assert.False(t, StateClosedOrFiltered.CanTransition(StateDone))
	assert.False(t, StateDone.CanTransition(StatePending))
	assert.Equal(t, "closed_or_filtered", StateClosedOrFiltered.String())
}

func TestConnectOutcome_Retryable(t *testing.T) {
	assert.True(t, ConnectOutcome{Kind: OutcomeTimeout}.Retryable())
	assert.False(t, ConnectOutcome{Kind: OutcomeClosed}.Retryable())
	assert.False(t, ConnectOutcome{Kind: OutcomeError}.Retryable())
}

func TestScanResult_JSON(t *testing.T) {
	r := ScanResult{
		IP:          "127.0.0.1",
		Port:        6379,
		Service:     &ServiceInfo{Name: "redis"},
		RawResponse: []byte("+PONG\r\n\xff"),
		Latency:     3 * time.Millisecond,
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "127.0.0.1", got["ip"])
	assert.Equal(t, float64(6379), got["port"])
	assert.Equal(t, "+PONG\r\n�", got["raw_response"])
	assert.Equal(t, "redis", got["service"].(map[string]interface{})["name"])

	none, err := json.Marshal(ScanResult{IP: "::1", Port: 80})
	require.NoError(t, err)
	assert.Contains(t, string(none), `"service":null`)
}

func TestScanResult_Rows(t *testing.T) {
	rs := ScanResults{
		{IP: "10.0.0.1", Port: 22, Service: &ServiceInfo{Name: "ssh", Product: "OpenSSH_7.2", Version: "2.0", Vulns: []string{"a", "b"}}},
		{IP: "fe80::1", Port: 80},
	}
	rows := rs.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"10.0.0.1", "22", "ssh", "OpenSSH_7.2", "2.0", "", "a; b"}, rows[0])
	assert.Equal(t, "unknown", rows[1][2])
	assert.Equal(t, "[fe80::1]:80", rs[1].Endpoint())
	assert.Len(t, rs.Headers(), len(rows[0]))
}

func TestServiceInfo_Clone(t *testing.T) {
	var nilInfo *ServiceInfo
	assert.Nil(t, nilInfo.Clone())

	orig := &ServiceInfo{Name: "ssh", Vulns: []string{"x"}, Metadata: map[string]string{"k": "v"}}
	c := orig.Clone()
	c.Vulns[0] = "y"
	c.Metadata["k"] = "w"
	assert.Equal(t, "x", orig.Vulns[0])
	assert.Equal(t, "v", orig.Metadata["k"])
}
