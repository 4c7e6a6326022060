package prescan

import (
	"context"
	"testing"

	"github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netaudit/internal/domain"
)

func host(addr string, states ...string) nmap.Host {
	h := nmap.Host{
		Addresses: []nmap.Address{{Addr: addr, AddrType: "ipv4"}},
	}
	for i, state := range states {
		h.Ports = append(h.Ports, nmap.Port{
			ID:    uint16(22 + i),
			State: nmap.State{State: state},
		})
	}
	return h
}

func TestOpenHosts(t *testing.T) {
	result := &nmap.Run{
		Hosts: []nmap.Host{
			host("10.0.0.1", "open"),
			host("10.0.0.2", "closed"),
			host("10.0.0.3", "filtered", "open"),
			host("10.0.0.4"),
		},
	}

	open := OpenHosts(result)

	assert.True(t, open["10.0.0.1"])
	assert.False(t, open["10.0.0.2"])
	assert.True(t, open["10.0.0.3"])
	assert.False(t, open["10.0.0.4"])
}

func TestOpenHostsNilResult(t *testing.T) {
	assert.Empty(t, OpenHosts(nil))
}

func TestOpenHostsKeysHostnames(t *testing.T) {
	h := host("10.0.0.1", "open")
	h.Hostnames = []nmap.Hostname{{Name: "core-sw-01"}}
	open := OpenHosts(&nmap.Run{Hosts: []nmap.Host{h}})

	assert.True(t, open["10.0.0.1"])
	assert.True(t, open["core-sw-01"])
}

func TestFilterSplitsInventory(t *testing.T) {
	orig := runScan
	defer func() { runScan = orig }()

	var gotTargets []string
	var gotPorts string
	runScan = func(ctx context.Context, targets []string, ports string) (*nmap.Run, error) {
		gotTargets = targets
		gotPorts = ports
		return &nmap.Run{
			Hosts: []nmap.Host{
				host("10.0.0.1", "open"),
				host("10.0.0.3", "open"),
			},
		}, nil
	}

	devices := []domain.Device{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2"},
		{Address: "10.0.0.3"},
	}

	s := &Scanner{Log: zerolog.Nop()}
	reachable, unreachable, err := s.Filter(context.Background(), devices)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, gotTargets)
	assert.Equal(t, DefaultPorts, gotPorts)

	require.Len(t, reachable, 2)
	assert.Equal(t, "10.0.0.1", reachable[0].Address)
	assert.Equal(t, "10.0.0.3", reachable[1].Address)

	require.Len(t, unreachable, 1)
	assert.Equal(t, "10.0.0.2", unreachable[0].Address)
}

func TestFilterRejectsBadPorts(t *testing.T) {
	orig := runScan
	defer func() { runScan = orig }()

	scanned := false
	runScan = func(context.Context, []string, string) (*nmap.Run, error) {
		scanned = true
		return &nmap.Run{}, nil
	}

	s := &Scanner{Ports: "ssh", Log: zerolog.Nop()}
	_, _, err := s.Filter(context.Background(), []domain.Device{{Address: "10.0.0.1"}})

	require.Error(t, err)
	assert.False(t, scanned, "invalid port expression must fail before scanning")
}

func TestFilterEmptyInventory(t *testing.T) {
	s := &Scanner{Log: zerolog.Nop()}
	reachable, unreachable, err := s.Filter(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, reachable)
	assert.Nil(t, unreachable)
}

func TestValidatePorts(t *testing.T) {
	tests := []struct {
		expr  string
		valid bool
	}{
		{"22", true},
		{"22,830", true},
		{"1-1024", true},
		{"22, 443", true},
		{"", true},
		{"0", false},
		{"70000", false},
		{"ssh", false},
		{"22-", false},
	}
	for _, tt := range tests {
		err := ValidatePorts(tt.expr)
		if tt.valid {
			assert.NoError(t, err, tt.expr)
		} else {
			assert.Error(t, err, tt.expr)
		}
	}
}
