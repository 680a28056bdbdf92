package audit

// PricingAuditor defines the interface for recording pricing operations
// served by the options engine.
type PricingAuditor interface {
	// LogPricingOperation is the single entry point for ALL audit operations.
	//
	// APPEND: Every operation other than "archive" is written as one JSON line
	// to the audit file: the request id, the operation name, a timestamp and
	// the data (inputs, result or error). Data is checked for NaN/Infinity
	// values before it is queued; such entries are flagged rather than dropped.
	//
	// ARCHIVE: When operation is "archive", the current audit file is moved to
	// the archive directory with a timestamped filename and a fresh file is
	// started on the next append.
	//
	// Parameters:
	//   requestID: Identifier of the HTTP request (or CLI run) being audited.
	//   operation: Type of pricing being logged. Standard operations include:
	//     - "Price", "PriceLattice" - single valuations
	//     - "Compare" - American vs European comparison
	//     - "PriceBatch" - one entry per batch item
	//     - "archive" - rotate the audit file
	//   data: The data to be logged - typically an Entry payload map
	//
	// Returns:
	//   error: nil once the entry is queued. The write itself happens on the
	//   worker goroutine; a full queue or a closed auditor returns an error.
	//
	// Usage Examples:
	//   auditor.LogPricingOperation(reqID, "Price", map[string]interface{}{"inputs": p, "result": r})
	//   auditor.LogPricingOperation("", "archive", nil)
	LogPricingOperation(requestID string, operation string, data interface{}) error

	// Close drains queued entries and releases the audit file.
	Close() error
}

// NopAuditor discards every operation; used when auditing is disabled.
type NopAuditor struct{}

func (NopAuditor) LogPricingOperation(string, string, interface{}) error { return nil }
func (NopAuditor) Close() error                                          { return nil }
