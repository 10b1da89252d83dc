package constants

const (
	// DefaultLayoutName selects the machine-readable code path.
	DefaultLayoutName = "PT"
	// ManualLayoutName is recorded on invoices committed from manual entry.
	ManualLayoutName = "Manual"
	// UnknownUser is recorded when no identity travels with the request.
	UnknownUser = "unknown"
)
