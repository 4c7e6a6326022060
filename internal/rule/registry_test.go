package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(SysnameRule{}))
	require.NoError(t, r.Register(TacacsRule{}))

	err := r.Register(SysnameRule{})
	assert.ErrorIs(t, err, errDuplicateRule)

	_, err = r.Select([]string{"sysname"})
	assert.ErrorIs(t, err, errNotFrozen)

	r.Freeze()
	r.Freeze()

	err = r.Register(CPUUsageRule{})
	assert.ErrorIs(t, err, errFrozen)

	assert.Equal(t, []string{"sysname", "tacacs"}, r.Names())
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(SysnameRule{}))
	require.NoError(t, r.Register(TacacsRule{}))
	require.NoError(t, r.Register(CPUUsageRule{}))
	r.Freeze()

	rules, err := r.Select([]string{"cpu_usage", "sysname"})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "cpu_usage", rules[0].Name())
	assert.Equal(t, "sysname", rules[1].Name())

	rules, err = r.Select([]string{"sysname", "sysname", "tacacs"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	rules, err = r.Select([]string{SelectAll})
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	rules, err = r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	_, err = r.Select([]string{"no_such_rule"})
	assert.ErrorIs(t, err, errUnknownRule)
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	names := r.Names()
	require.NotEmpty(t, names)
	assert.Equal(t, "sysname", names[0])
	assert.Contains(t, names, "snmp_v3")
	assert.Contains(t, names, "transceiver_diagnostics")

	rules, err := r.Select([]string{SelectAll})
	require.NoError(t, err)
	assert.Len(t, rules, len(names))
}
