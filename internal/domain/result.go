package domain

import "time"

// Verdict classifies the outcome of one rule against one device.
type Verdict string

const (
	// VerdictCompliant - the rule ran and the device satisfies it.
	VerdictCompliant Verdict = "compliant"
	// VerdictNonCompliant - the rule ran and found a violation.
	VerdictNonCompliant Verdict = "non_compliant"
	// VerdictError - the rule could not be evaluated (fault, timeout, no
	// connection). Distinct from a violation.
	VerdictError Verdict = "error"
	// VerdictSkipped - the rule is not applicable to the discovered platform.
	// Does not count against compliance.
	VerdictSkipped Verdict = "skipped"
)

// RuleResult is the outcome of one rule against one device. Immutable once
// produced.
type RuleResult struct {
	Rule     string        `json:"rule"`
	Verdict  Verdict       `json:"verdict"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// DeviceStatus is the overall outcome of one device's audit.
type DeviceStatus string

const (
	StatusOK DeviceStatus = "ok"
	// StatusFailed - the device could not be fully audited: connection or
	// discovery failed, the batch timed out, or at least one rule errored.
	StatusFailed DeviceStatus = "failed"
)

// DeviceAuditRecord aggregates one device's audit. There is exactly one record
// per input device and exactly one RuleResult per requested rule, in the
// caller-specified rule order.
type DeviceAuditRecord struct {
	Device   Device        `json:"device"`
	Status   DeviceStatus  `json:"status"`
	Failure  string        `json:"failure,omitempty"`
	Results  []RuleResult  `json:"results"`
	Duration time.Duration `json:"duration_ns"`
}

// Result returns the result for the named rule, if present.
func (r *DeviceAuditRecord) Result(rule string) (RuleResult, bool) {
	for _, res := range r.Results {
		if res.Rule == rule {
			return res, true
		}
	}

	return RuleResult{}, false
}

// AuditBatch is the complete run: one record per input device, in input order
// regardless of completion order. Immutable once the scheduler has observed
// every device task terminate.
type AuditBatch struct {
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Records    []DeviceAuditRecord `json:"records"`
}

// Duration is the wall-clock time of the whole batch.
func (b *AuditBatch) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// Failed counts records with StatusFailed.
func (b *AuditBatch) Failed() int {
	n := 0

	for i := range b.Records {
		if b.Records[i].Status == StatusFailed {
			n++
		}
	}

	return n
}
