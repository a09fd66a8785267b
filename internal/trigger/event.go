// Package trigger decides when runs start: manual command, comment poller,
// or webhook. Every path converges on the same launcher.
package trigger

// Kind is the source of a trigger event.
type Kind string

const (
	KindManual  Kind = "manual"
	KindPoll    Kind = "poll"
	KindWebhook Kind = "webhook"
)

// Event describes one decision to start a run.
type Event struct {
	Kind       Kind
	Issue      int
	Reason     string // human-readable eligibility reason
	RawPayload []byte // original webhook body, empty for other kinds
}
