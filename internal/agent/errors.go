package agent

import "fmt"

// BridgeErrorKind classifies failures of an agent invocation.
type BridgeErrorKind int

const (
	// MissingCredential means a required credential was absent before spawn.
	MissingCredential BridgeErrorKind = iota
	// Incomplete means the stream ended without a terminal result record.
	Incomplete
	// ProcessFailed means the subprocess exited non-zero.
	ProcessFailed
)

func (k BridgeErrorKind) String() string {
	switch k {
	case MissingCredential:
		return "missing_credential"
	case Incomplete:
		return "incomplete"
	case ProcessFailed:
		return "process_failed"
	default:
		return "unknown"
	}
}

// BridgeError is a classified agent-invocation failure.
type BridgeError struct {
	Kind     BridgeErrorKind
	ExitCode int
	Stderr   string
	Detail   string
}

func (e *BridgeError) Error() string {
	switch e.Kind {
	case MissingCredential:
		return fmt.Sprintf("agent bridge: missing credential %s", e.Detail)
	case Incomplete:
		return "agent bridge: stream ended without a terminal result record"
	case ProcessFailed:
		msg := fmt.Sprintf("agent bridge: process exited with code %d", e.ExitCode)
		if e.Stderr != "" {
			msg += ": " + e.Stderr
		}
		return msg
	default:
		return "agent bridge: " + e.Detail
	}
}
