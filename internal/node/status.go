package node

// Status is the advisory validation state of a node, as shown by an editor.
type Status int

const (
	// Incomplete indicates inputs or configuration are missing.
	Incomplete Status = iota
	// Validated indicates the node passed all consistency checks.
	Validated
	// Error indicates a consistency check failed.
	Error
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case Incomplete:
		return "incomplete"
	case Validated:
		return "validated"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
