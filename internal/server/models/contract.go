package models

import "time"

// DocumentStatus tracks the state of a contract's rendered document.
type DocumentStatus string

const (
	// DocumentPending means no render has completed yet.
	DocumentPending DocumentStatus = "pending"
	// DocumentReady means DocumentRef points at a successfully uploaded PDF.
	DocumentReady DocumentStatus = "ready"
	// DocumentFailed means the last render or upload attempt failed;
	// DocumentRef still holds the previous successful reference, if any.
	DocumentFailed DocumentStatus = "failed"
)

// Contract is a transport service contract record.
type Contract struct {
	ID         string
	City       string
	Address    string
	DriverName string
	IDNumber   string
	Birthday   string
	ExtraNotes string
	// CreatedBy is the external identity of the owner; immutable after create.
	CreatedBy string
	// DocumentRef is the object-storage key of the last successfully
	// uploaded PDF; empty until the first render succeeds.
	DocumentRef    string
	DocumentStatus DocumentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
