package agent

import (
	"encoding/json"
	"io"
	"strings"
)

// The agent subprocess speaks a line-delimited JSON protocol on stdout: an
// initial system/init record, zero or more turn records, and exactly one
// terminal result record. Unknown record kinds pass through untouched so new
// message types don't break older pilots; malformed lines are recorded as
// warnings, never fatal.

// resultRecord is the terminal record of the stream.
type resultRecord struct {
	Type         string  `json:"type"`
	Subtype      string  `json:"subtype"`
	IsError      bool    `json:"is_error"`
	Result       string  `json:"result"`
	SessionID    string  `json:"session_id"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	DurationMS   int64   `json:"duration_ms"`
}

// streamParser consumes the protocol line by line, keeping every decoded
// record for the readable output file and capturing the terminal result.
type streamParser struct {
	records  []json.RawMessage
	result   *resultRecord
	warnings []string
}

// Feed processes one line of subprocess output.
func (p *streamParser) Feed(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		p.warnings = append(p.warnings, "malformed JSON line: "+truncate(line, 120))
		return
	}

	p.records = append(p.records, json.RawMessage(line))

	if probe.Type == "result" {
		var res resultRecord
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			p.warnings = append(p.warnings, "malformed result record: "+truncate(line, 120))
			return
		}
		p.result = &res
	}
}

// lineWriter splits a byte stream into lines, writing each verbatim to the
// transcript and feeding it to the parser.
type lineWriter struct {
	buffer strings.Builder
	target io.Writer
	feed   func(string)
}

func newLineWriter(target io.Writer, feed func(string)) *lineWriter {
	return &lineWriter{target: target, feed: feed}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if b == '\n' {
			line := w.buffer.String()
			if _, err := w.target.Write([]byte(line + "\n")); err != nil {
				// Bytes before the failed newline were buffered, so report
				// them as consumed per the io.Writer contract.
				return i, err
			}
			w.feed(line)
			w.buffer.Reset()
			continue
		}
		w.buffer.WriteByte(b)
	}
	return len(p), nil
}

// Flush handles a final line without a trailing newline.
func (w *lineWriter) Flush() {
	if w.buffer.Len() == 0 {
		return
	}
	line := w.buffer.String()
	_, _ = w.target.Write([]byte(line + "\n"))
	w.feed(line)
	w.buffer.Reset()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
