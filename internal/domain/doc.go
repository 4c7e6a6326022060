// Package domain defines the core domain types for the netaudit compliance engine.
//
// This package contains the entities and value objects shared by every stage of
// an audit run: devices, credentials, platform inventory, rule verdicts and the
// aggregated batch handed to the reporting layer.
//
// # Core Types
//
// Device identifies one audited network element. It is created from the input
// device list, enriched exactly once by platform discovery, and treated as
// immutable afterwards.
//
// PlatformInfo carries the outcome of platform discovery: vendor dialect,
// hostname, model, software version and firmware string.
//
// RuleResult is the outcome of one compliance rule against one device. The
// Verdict distinguishes compliant, non_compliant, error (rule could not be
// evaluated) and skipped (rule not applicable to the platform); these are never
// conflated in output.
//
// DeviceAuditRecord aggregates one device's audit: the device snapshot, one
// RuleResult per requested rule, the total duration and an overall status.
//
// AuditBatch is the complete run, one record per input device in input order.
// It is the sole hand-off artifact for reporting and persistence.
//
// # Design Principles
//
// - Immutable value objects once produced
// - No database or external dependencies
// - Credentials are borrowed, opaque and never serialized
package domain
