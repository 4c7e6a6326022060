// Package repository defines the data access interface for audit history.
//
// Each finished audit batch can be persisted so runs are comparable over
// time. The actual implementation is in the sqlite subpackage, which uses
// WAL mode and stores rule results as JSON alongside the indexed device
// columns.
package repository
