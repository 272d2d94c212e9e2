package metrics

import "time"

// ShutdownTimeout is the grace period for stopping the telemetry server.
const ShutdownTimeout = 5 * time.Second

// Detection source labels.
const (
	SourceBarcode = "barcode"
	SourceVision  = "vision"
	SourceText    = "text"
	SourceManual  = "manual"
)

// Lookup status labels.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Estimate reason labels.
const (
	ReasonNoMatch     = "no_match"
	ReasonLookupError = "lookup_error"
)
