package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netaudit/internal/discovery"
	"netaudit/internal/domain"
	"netaudit/internal/engine"
	"netaudit/internal/rule"
	"netaudit/internal/session"
)

// fakeSession answers discovery probes like a Comware switch and tracks
// whether the scheduler closed it.
type fakeSession struct {
	mu       sync.Mutex
	closed   bool
	hostname string
	broken   bool
	delay    time.Duration
}

func (s *fakeSession) Send(ctx context.Context, command string) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()

	if broken {
		return "", &session.CommandError{Command: command, Err: context.DeadlineExceeded, Timeout: true}
	}

	switch {
	case command == "display version":
		return "HPE Comware Software, Version 7.1.070\nHPE 5130 EI Switch", nil
	case strings.Contains(command, "sysname"):
		return " sysname " + s.hostname, nil
	case strings.HasPrefix(command, "screen-length"):
		return "", nil
	default:
		return "% Unrecognized command", nil
	}
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return nil
}

func (s *fakeSession) State() session.State { return session.StateReady }

// breakAfterDiscovery makes every later command fail like a torn-down link.
func (s *fakeSession) breakAfterDiscovery() {
	s.mu.Lock()
	s.broken = true
	s.mu.Unlock()
}

// fakeDialer builds sessions per address and counts concurrently live ones.
type fakeDialer struct {
	mu          sync.Mutex
	sessions    map[string]*fakeSession
	unreachable map[string]bool
	delay       time.Duration

	live    atomic.Int32
	maxLive atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, device *domain.Device, _ domain.Credentials) (session.Session, error) {
	if d.unreachable[device.Address] {
		return nil, &session.ConnectError{Addr: device.Address, Reason: "unreachable", Err: context.DeadlineExceeded}
	}

	n := d.live.Add(1)
	for {
		max := d.maxLive.Load()
		if n <= max || d.maxLive.CompareAndSwap(max, n) {
			break
		}
	}

	sess := &fakeSession{hostname: "SW-" + device.Address, delay: d.delay}

	d.mu.Lock()
	if d.sessions == nil {
		d.sessions = make(map[string]*fakeSession)
	}
	d.sessions[device.Address] = sess
	d.mu.Unlock()

	return &countedSession{fakeSession: sess, dialer: d}, nil
}

// countedSession decrements the live counter on close so the concurrency
// bound can be observed.
type countedSession struct {
	*fakeSession
	dialer *fakeDialer
	once   sync.Once
}

func (s *countedSession) Close() error {
	s.once.Do(func() { s.dialer.live.Add(-1) })
	return s.fakeSession.Close()
}

func newScheduler(d *fakeDialer, workers int) *Scheduler {
	return &Scheduler{
		Dialer:     d,
		Discoverer: &discovery.Discoverer{Log: zerolog.Nop()},
		Engine:     &engine.Engine{Log: zerolog.Nop()},
		Workers:    workers,
		Log:        zerolog.Nop(),
	}
}

func devices(n int) []domain.Device {
	out := make([]domain.Device, n)
	for i := range out {
		out[i] = domain.Device{Address: fmt.Sprintf("192.0.2.%d", i+1)}
	}

	return out
}

// okRule passes everywhere.
type okRule struct{ name string }

func (r okRule) Name() string                 { return r.name }
func (okRule) Applicable(*domain.Device) bool { return true }
func (okRule) Run(context.Context, rule.Target, rule.Config) domain.RuleResult {
	return domain.RuleResult{Verdict: domain.VerdictCompliant}
}

func TestAuditAllKeepsInputOrder(t *testing.T) {
	d := &fakeDialer{delay: time.Millisecond}
	s := newScheduler(d, 4)

	devs := devices(12)

	batch := s.AuditAll(context.Background(), devs, []rule.Rule{okRule{name: "noop"}})
	require.Len(t, batch.Records, len(devs))

	for i, rec := range batch.Records {
		assert.Equal(t, devs[i].Address, rec.Device.Address, "record %d out of order", i)
		assert.Equal(t, domain.StatusOK, rec.Status)
	}
}

func TestAuditAllBoundsConcurrency(t *testing.T) {
	const workers = 3

	d := &fakeDialer{delay: 5 * time.Millisecond}
	s := newScheduler(d, workers)

	s.AuditAll(context.Background(), devices(15), []rule.Rule{okRule{name: "noop"}})

	assert.LessOrEqual(t, d.maxLive.Load(), int32(workers),
		"more than %d sessions were live at once", workers)
}

func TestAuditAllClosesSessions(t *testing.T) {
	d := &fakeDialer{}
	s := newScheduler(d, 2)

	s.AuditAll(context.Background(), devices(5), []rule.Rule{okRule{name: "noop"}})

	require.Len(t, d.sessions, 5)

	for addr, sess := range d.sessions {
		assert.True(t, sess.closed, "session %s left open", addr)
	}
}

func TestAuditAllUnreachableDevice(t *testing.T) {
	d := &fakeDialer{unreachable: map[string]bool{"192.0.2.2": true}}
	s := newScheduler(d, 2)

	rules := []rule.Rule{okRule{name: "sysname"}, okRule{name: "tacacs"}}

	batch := s.AuditAll(context.Background(), devices(3), rules)
	require.Len(t, batch.Records, 3)

	rec := batch.Records[1]
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.Failure)
	require.Len(t, rec.Results, 2)

	for _, result := range rec.Results {
		assert.Equal(t, domain.VerdictError, result.Verdict)
		assert.Contains(t, result.Detail, "unreachable")
	}

	assert.Equal(t, domain.StatusOK, batch.Records[0].Status)
	assert.Equal(t, domain.StatusOK, batch.Records[2].Status)
	assert.Equal(t, 1, batch.Failed())
}

// hostnameRule mirrors the real sysname check without its configuration.
type hostnameRule struct{ prefix string }

func (hostnameRule) Name() string                   { return "sysname" }
func (hostnameRule) Applicable(*domain.Device) bool { return true }
func (r hostnameRule) Run(_ context.Context, t rule.Target, _ rule.Config) domain.RuleResult {
	if strings.HasPrefix(t.Device.Hostname, r.prefix) {
		return domain.RuleResult{Verdict: domain.VerdictCompliant}
	}

	return domain.RuleResult{Verdict: domain.VerdictNonCompliant}
}

// probeRule issues one command, failing like tacacs does when the link dies.
type probeRule struct{}

func (probeRule) Name() string                   { return "tacacs" }
func (probeRule) Applicable(*domain.Device) bool { return true }
func (probeRule) Run(ctx context.Context, t rule.Target, _ rule.Config) domain.RuleResult {
	if _, err := t.Shell.Send(ctx, "display current-configuration | include tacacs"); err != nil {
		return domain.RuleResult{Verdict: domain.VerdictError, Detail: err.Error()}
	}

	return domain.RuleResult{Verdict: domain.VerdictCompliant}
}

// breakOnCommandRule tears the session down before later rules run,
// simulating a device dropping mid-task.
type breakOnCommandRule struct {
	dialer *fakeDialer
	addr   string
}

func (breakOnCommandRule) Name() string                   { return "break" }
func (breakOnCommandRule) Applicable(*domain.Device) bool { return true }
func (r breakOnCommandRule) Run(_ context.Context, t rule.Target, _ rule.Config) domain.RuleResult {
	if t.Device.Address == r.addr {
		r.dialer.mu.Lock()
		sess := r.dialer.sessions[r.addr]
		r.dialer.mu.Unlock()

		sess.breakAfterDiscovery()
	}

	return domain.RuleResult{Verdict: domain.VerdictCompliant}
}

func TestAuditAllEndToEndScenario(t *testing.T) {
	devs := []domain.Device{
		{Address: "10.0.0.1"},
		{Address: "10.0.0.2"},
		{Address: "10.0.0.3"},
	}

	d := &fakeDialer{unreachable: map[string]bool{"10.0.0.3": true}}
	s := newScheduler(d, 3)

	// Device A gets a conforming hostname, device B does not; device B also
	// loses its session after sysname ran.
	aName := hostnameRule{prefix: "SW-10.0.0.1"}

	rules := []rule.Rule{
		aName,
		breakOnCommandRule{dialer: d, addr: "10.0.0.2"},
		probeRule{},
	}

	// Only device B should be broken mid-task; give A a prefix that matches
	// and B one that does not.
	batch := s.AuditAll(context.Background(), devs, rules)
	require.Len(t, batch.Records, 3)

	recA, recB, recC := batch.Records[0], batch.Records[1], batch.Records[2]

	verdict := func(rec domain.DeviceAuditRecord, name string) domain.Verdict {
		result, ok := rec.Result(name)
		require.True(t, ok, "record %s has no %s result", rec.Device.Address, name)

		return result.Verdict
	}

	// A: hostname matches, link intact.
	assert.Equal(t, domain.StatusOK, recA.Status)
	assert.Equal(t, domain.VerdictCompliant, verdict(recA, "sysname"))
	assert.Equal(t, domain.VerdictCompliant, verdict(recA, "tacacs"))

	// B: hostname does not match, then the session died.
	assert.Equal(t, domain.StatusFailed, recB.Status)
	assert.Equal(t, domain.VerdictNonCompliant, verdict(recB, "sysname"))
	assert.Equal(t, domain.VerdictError, verdict(recB, "tacacs"))

	// C: never connected.
	assert.Equal(t, domain.StatusFailed, recC.Status)
	assert.Equal(t, domain.VerdictError, verdict(recC, "sysname"))
	assert.Equal(t, domain.VerdictError, verdict(recC, "tacacs"))

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		[]string{recA.Device.Address, recB.Device.Address, recC.Device.Address})
}

func TestAuditAllBatchTimeout(t *testing.T) {
	d := &fakeDialer{delay: 50 * time.Millisecond}

	s := newScheduler(d, 1)
	s.BatchTimeout = 30 * time.Millisecond

	batch := s.AuditAll(context.Background(), devices(4), []rule.Rule{okRule{name: "noop"}})
	require.Len(t, batch.Records, 4)

	// The tail of the device list never starts; those records are failed
	// with every rule marked as an error.
	last := batch.Records[3]
	assert.Equal(t, domain.StatusFailed, last.Status)
	require.Len(t, last.Results, 1)
	assert.Equal(t, domain.VerdictError, last.Results[0].Verdict)
}
