package sanitize

// Result is the output of one sanitizer stage. Stages are pure: the same
// input always produces the same Result.
type Result struct {
	// Content is the (possibly repaired) buffer.
	Content string

	// Changed reports whether Content differs from the input.
	Changed bool

	// Description is a one-line summary of what the stage did, empty when
	// nothing changed.
	Description string

	// Diagnostics lists each individual repair action in order. Telemetry
	// only; never used for control flow.
	Diagnostics []string
}

// unchanged builds the no-op Result for a stage.
func unchanged(content string) Result {
	return Result{Content: content}
}

// Step is the append-only trace record for one sanitizer invocation in a
// repair attempt. Steps are retained even when the attempt ultimately
// fails so the forensic trail is complete.
type Step struct {
	Sanitizer   string   `json:"sanitizer"`
	Changed     bool     `json:"changed"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}
