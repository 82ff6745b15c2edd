package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"www.velocidex.com/golang/evtx"

	"github.com/nao1215/socaudit/internal/model"
)

// MaxEventTextLength caps SysmonEvent.Event, in characters.
const MaxEventTextLength = 2000

// SysmonReader reads recent events from a Sysmon EVTX file.
type SysmonReader struct {
	path      string
	window    time.Duration
	maxEvents int
	now       func() time.Time
	logger    *slog.Logger
}

// SysmonOption configures a SysmonReader.
type SysmonOption func(*SysmonReader)

// WithSysmonLogger sets the logger.
func WithSysmonLogger(logger *slog.Logger) SysmonOption {
	return func(r *SysmonReader) {
		r.logger = logger
	}
}

// WithClock sets the function used as "now" for the time window.
func WithClock(now func() time.Time) SysmonOption {
	return func(r *SysmonReader) {
		r.now = now
	}
}

// NewSysmonReader creates a reader that keeps events from the last hours
// hours and at most maxEvents of them.
func NewSysmonReader(path string, hours, maxEvents int, opts ...SysmonOption) *SysmonReader {
	r := &SysmonReader{
		path:      path,
		window:    time.Duration(hours) * time.Hour,
		maxEvents: maxEvents,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Collect reads the EVTX file. A missing or unreadable file is reported in
// SysmonLogs.Error rather than returned, so the rest of the snapshot is kept.
func (r *SysmonReader) Collect(ctx context.Context) model.SysmonLogs {
	logs := model.SysmonLogs{Events: []model.SysmonEvent{}}

	fd, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			logs.Error = "Sysmon log not found: " + r.path
		} else {
			logs.Error = fmt.Sprintf("failed to open Sysmon log: %v", err)
		}
		return logs
	}
	defer fd.Close()

	chunks, err := evtx.GetChunks(fd)
	if err != nil {
		logs.Error = fmt.Sprintf("failed to parse Sysmon log: %v", err)
		return logs
	}

	filter := newEventFilter(r.now().Add(-r.window), r.maxEvents)
	for i, chunk := range chunks {
		if filter.full() {
			break
		}
		if err := ctx.Err(); err != nil {
			logs.Error = fmt.Sprintf("Sysmon read interrupted: %v", err)
			break
		}

		records, err := chunk.Parse(0)
		if err != nil {
			r.logger.Debug("skipping unparsable EVTX chunk", "chunk", i, "error", err)
			continue
		}
		for _, record := range records {
			if filter.full() {
				break
			}
			filter.add(uint64(record.Header.RecordID), record.Event)
		}
	}

	logs.Events = filter.events
	logs.Count = len(filter.events)
	r.logger.Debug("read Sysmon events", "path", r.path, "count", logs.Count)
	return logs
}

// eventFilter keeps events newer than cutoff, up to max of them.
type eventFilter struct {
	cutoff time.Time
	max    int
	events []model.SysmonEvent
}

func newEventFilter(cutoff time.Time, maxEvents int) *eventFilter {
	return &eventFilter{cutoff: cutoff, max: maxEvents, events: []model.SysmonEvent{}}
}

func (f *eventFilter) full() bool {
	return len(f.events) >= f.max
}

// add converts and keeps event if it is inside the window. Events without a
// timestamp are kept. It reports whether the event was kept.
func (f *eventFilter) add(recordID uint64, event any) bool {
	if f.full() {
		return false
	}

	ev, created, ok := toSysmonEvent(recordID, event)
	if ok && created.Before(f.cutoff) {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

// eventEnvelope picks the System fields out of a parsed event.
type eventEnvelope struct {
	System struct {
		EventID     json.RawMessage `json:"EventID"`
		TimeCreated struct {
			SystemTime json.RawMessage `json:"SystemTime"`
		} `json:"TimeCreated"`
	} `json:"System"`
}

// toSysmonEvent renders event as a SysmonEvent and returns its creation
// time; the boolean is false when the event carries no usable timestamp.
// The parser wraps each record in an ordered dict keyed "Event"; the
// wrapper is dropped so the text and the envelope start at System.
func toSysmonEvent(recordID uint64, event any) (model.SysmonEvent, time.Time, bool) {
	ev := model.SysmonEvent{RecordID: recordID}

	data, err := json.Marshal(event)
	if err != nil {
		ev.Event = truncateRunes(fmt.Sprint(event), MaxEventTextLength)
		return ev, time.Time{}, false
	}
	data = unwrapEvent(data)
	ev.Event = truncateRunes(string(data), MaxEventTextLength)

	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ev, time.Time{}, false
	}

	ev.EventID = parseEventID(env.System.EventID)
	created, ok := parseSystemTime(env.System.TimeCreated.SystemTime)
	if ok {
		ev.TimeCreated = created.UTC().Format(time.RFC3339Nano)
	}
	return ev, created, ok
}

// unwrapEvent returns the object under a top-level "Event" key, or data
// unchanged when there is none.
func unwrapEvent(data []byte) []byte {
	var wrapper struct {
		Event json.RawMessage `json:"Event"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return data
	}
	inner := bytes.TrimSpace(wrapper.Event)
	if len(inner) == 0 || inner[0] != '{' {
		return data
	}
	return inner
}

// parseSystemTime accepts epoch seconds (as the evtx parser emits) or an
// RFC 3339 string.
func parseSystemTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// parseEventID accepts a number, a numeric string, or an object with a
// "Value" field (EventID with Qualifiers).
func parseEventID(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}

	var withValue struct {
		Value json.RawMessage `json:"Value"`
	}
	if err := json.Unmarshal(raw, &withValue); err == nil && len(withValue.Value) > 0 {
		return parseEventID(withValue.Value)
	}
	return 0
}

// truncateRunes shortens s to at most n characters.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
