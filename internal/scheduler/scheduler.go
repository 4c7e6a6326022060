// Package scheduler fans an audit out across devices. One worker owns one
// device end to end: connect, discover, evaluate, assemble the record. The
// pool is bounded so a large device list cannot exhaust local sockets or
// remote session limits.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"netaudit/internal/discovery"
	"netaudit/internal/domain"
	"netaudit/internal/engine"
	"netaudit/internal/rule"
	"netaudit/internal/session"
)

// DefaultWorkers bounds the pool when the caller does not set one.
const DefaultWorkers = 10

// Scheduler runs a batch of device audits. The zero value is not usable;
// Dialer and Engine must be set.
type Scheduler struct {
	Dialer     session.Dialer
	Discoverer *discovery.Discoverer
	Engine     *engine.Engine

	// Workers caps concurrently in-flight device tasks.
	Workers int

	// BatchTimeout bounds the whole run. Zero means no batch deadline.
	BatchTimeout time.Duration

	Credentials domain.Credentials
	SNMP        domain.SNMPCredentials

	Log zerolog.Logger
}

func (s *Scheduler) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}

	return DefaultWorkers
}

// AuditAll audits every device with the given rules and returns one record
// per device, in input order. It blocks until every task has reached a
// terminal state. A device failure never fails the batch.
func (s *Scheduler) AuditAll(ctx context.Context, devices []domain.Device, rules []rule.Rule) domain.AuditBatch {
	batch := domain.AuditBatch{
		StartedAt: time.Now(),
		Records:   make([]domain.DeviceAuditRecord, len(devices)),
	}

	if s.BatchTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.BatchTimeout)
		defer cancel()
	}

	var group errgroup.Group

	group.SetLimit(s.workers())

	for i := range devices {
		group.Go(func() error {
			batch.Records[i] = s.auditDevice(ctx, devices[i], rules)
			return nil
		})
	}

	// Workers never return errors; failures live inside the records.
	_ = group.Wait()

	batch.FinishedAt = time.Now()

	s.Log.Info().
		Int("devices", len(devices)).
		Int("failed", batch.Failed()).
		Dur("duration", batch.Duration()).
		Msg("Audit batch finished")

	return batch
}

func (s *Scheduler) auditDevice(ctx context.Context, device domain.Device, rules []rule.Rule) domain.DeviceAuditRecord {
	start := time.Now()
	log := s.Log.With().Str("device", device.Address).Logger()

	record := domain.DeviceAuditRecord{Device: device, Status: domain.StatusOK}

	if err := ctx.Err(); err != nil {
		return s.failed(record, rules, start, "timeout", "audit deadline exceeded before device started")
	}

	sess, err := s.Dialer.Dial(ctx, &record.Device, s.Credentials)
	if err != nil {
		log.Warn().Err(err).Msg("Connection failed")

		return s.failed(record, rules, start, err.Error(), "unreachable: "+err.Error())
	}
	defer sess.Close()

	platform, err := s.Discoverer.Identify(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Msg("Platform discovery failed")

		return s.failed(record, rules, start, err.Error(), "unreachable: "+err.Error())
	}

	record.Device.ApplyPlatform(platform)

	log.Info().
		Str("vendor", string(record.Device.Vendor)).
		Str("hostname", record.Device.Hostname).
		Msg("Device identified")

	target := rule.Target{
		Shell:    sess,
		Device:   &record.Device,
		Platform: platform,
		SNMP:     &s.SNMP,
	}

	record.Results = s.Engine.RunAll(ctx, rules, target)
	record.Duration = time.Since(start)

	for _, result := range record.Results {
		if result.Verdict == domain.VerdictError {
			record.Status = domain.StatusFailed
			break
		}
	}

	return record
}

// failed assembles the record for a device whose task aborted before rule
// execution: every requested rule is marked as an error so the report still
// carries one result per rule.
func (s *Scheduler) failed(record domain.DeviceAuditRecord, rules []rule.Rule, start time.Time, failure, detail string) domain.DeviceAuditRecord {
	record.Status = domain.StatusFailed
	record.Failure = failure
	record.Duration = time.Since(start)
	record.Results = make([]domain.RuleResult, 0, len(rules))

	for _, rl := range rules {
		record.Results = append(record.Results, domain.RuleResult{
			Rule:    rl.Name(),
			Verdict: domain.VerdictError,
			Detail:  detail,
		})
	}

	return record
}
