package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lucasnoah/issuepilot/internal/ledger"
	"github.com/lucasnoah/issuepilot/internal/runid"
	"github.com/lucasnoah/issuepilot/internal/tracker"
)

// IssueSource is the slice of the tracker client the poller needs.
type IssueSource interface {
	ListOpenIssues(limit int) ([]tracker.IssueRef, error)
	FetchComments(number int) ([]tracker.Comment, error)
}

// Poller scans open issues on an interval and dispatches eligible ones.
// An issue is eligible when it has no comments at all, or when its latest
// comment is exactly the trigger word. Pilot progress comments break
// eligibility, so a dispatched issue does not fire again.
type Poller struct {
	source      IssueSource
	launcher    Launcher
	ledger      ledger.Store
	triggerWord string
	interval    time.Duration
	issueLimit  int
	logf        func(format string, args ...interface{})
	newRunID    func() string
}

// PollerOpts configures a Poller.
type PollerOpts struct {
	TriggerWord string
	Interval    time.Duration
	IssueLimit  int
	Logf        func(format string, args ...interface{})
}

// NewPoller creates a Poller.
func NewPoller(source IssueSource, launcher Launcher, led ledger.Store, opts PollerOpts) *Poller {
	if opts.TriggerWord == "" {
		opts.TriggerWord = "adw"
	}
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Second
	}
	if opts.IssueLimit <= 0 {
		opts.IssueLimit = 20
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...interface{}) {}
	}
	return &Poller{
		source:      source,
		launcher:    launcher,
		ledger:      led,
		triggerWord: opts.TriggerWord,
		interval:    opts.Interval,
		issueLimit:  opts.IssueLimit,
		logf:        opts.Logf,
		newRunID:    runid.New,
	}
}

// Run polls until the context is cancelled. One tick runs immediately.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Tick(); err != nil {
			p.logf("poll tick: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick scans once and dispatches every eligible issue.
func (p *Poller) Tick() error {
	refs, err := p.source.ListOpenIssues(p.issueLimit)
	if err != nil {
		return fmt.Errorf("list open issues: %w", err)
	}

	for _, ref := range refs {
		event, ok, err := p.evaluate(ref.Number)
		if err != nil {
			p.logf("evaluate issue #%d: %v", ref.Number, err)
			continue
		}
		if !ok {
			continue
		}
		if err := p.dispatch(event); err != nil {
			p.logf("dispatch issue #%d: %v", ref.Number, err)
		}
	}
	return nil
}

// evaluate decides whether an issue should be dispatched this tick.
func (p *Poller) evaluate(issue int) (Event, bool, error) {
	comments, err := p.source.FetchComments(issue)
	if err != nil {
		return Event{}, false, err
	}

	if len(comments) == 0 {
		seen, err := p.ledger.Has(issue)
		if err != nil {
			return Event{}, false, err
		}
		if seen {
			return Event{}, false, nil
		}
		return Event{Kind: KindPoll, Issue: issue, Reason: "no comments"}, true, nil
	}

	last := comments[len(comments)-1]
	if strings.TrimSpace(last.Body) != p.triggerWord {
		return Event{}, false, nil
	}

	// Same trigger comment as last dispatch: already handled.
	lastSeen, err := p.ledger.LastCommentID(issue)
	if err != nil {
		return Event{}, false, err
	}
	if lastSeen != "" && lastSeen == last.ID {
		return Event{}, false, nil
	}

	return Event{Kind: KindPoll, Issue: issue, Reason: "trigger comment " + last.ID}, true, nil
}

// dispatch marks the ledger before launching. If the launch fails the mark
// stays; an operator retriggers with a fresh comment rather than the poller
// double-firing.
func (p *Poller) dispatch(event Event) error {
	commentID := strings.TrimPrefix(event.Reason, "trigger comment ")
	if commentID == event.Reason {
		commentID = ""
	}
	if err := p.ledger.Mark(event.Issue, commentID); err != nil {
		return fmt.Errorf("mark ledger: %w", err)
	}

	id := p.newRunID()
	p.logf("dispatching run %s for issue #%d (%s)", id, event.Issue, event.Reason)
	return p.launcher.Launch(event.Issue, id)
}
