package transport

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// event is one dispatched server-sent event.
type event struct {
	ID   string
	Type string
	Data string
}

var sseFieldPrefixes = []string{"event:", "data:", "id:", "retry:", ":"}

// looksLikeEventStream reports whether body opens with an event-stream field
// line rather than a JSON document.
func looksLikeEventStream(body []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), " \t\r\n")
	for _, prefix := range sseFieldPrefixes {
		if bytes.HasPrefix(trimmed, []byte(prefix)) {
			return true
		}
	}
	return false
}

// parseEventStream splits a text/event-stream body into events. Multiple
// data lines of one event are joined with a newline; a blank line or the
// end of the body dispatches the event. Events without data are dropped.
func parseEventStream(r io.Reader) ([]event, error) {
	reader := bufio.NewReaderSize(r, 4096)

	var (
		events    []event
		data      []string
		eventID   string
		eventType string
		lastID    string
	)

	dispatch := func() {
		if len(data) > 0 {
			id := eventID
			if id == "" {
				id = lastID
			}
			events = append(events, event{ID: id, Type: eventType, Data: strings.Join(data, "\n")})
		}
		if eventID != "" {
			lastID = eventID
		}
		data, eventID, eventType = nil, "", ""
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		atEOF := errors.Is(err, io.EOF)

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
			// comment / heartbeat
		default:
			field, val, _ := strings.Cut(line, ":")
			val = strings.TrimPrefix(val, " ")
			switch field {
			case "data":
				data = append(data, val)
			case "id":
				eventID = val
			case "event":
				eventType = val
			}
		}

		if atEOF {
			dispatch()
			return events, nil
		}
	}
}

// sessionFromEventID extracts a legacy session token: the part of the event
// id before its first underscore, or the whole id when it has none.
func sessionFromEventID(id string) string {
	token, _, _ := strings.Cut(id, "_")
	return token
}
