// Package source reads capture events from a JSON Lines stream and feeds
// them to the capture service. The listener daemon wires stdin here, so
// any bridge that can emit one JSON object per line can act as the event
// producer.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/runnerr0/notifylog/internal/capture"
)

// maxLineBytes bounds a single event line. Longer lines are discarded,
// not fatal: the stream must survive one misbehaving producer line.
const maxLineBytes = 1 << 20

// Sink receives decoded events. Implemented by capture.Service.
type Sink interface {
	OnPosted(ev capture.PostedEvent)
	OnRemoved(ev capture.RemovedEvent)
}

// event is the wire shape of one line.
type event struct {
	Type       string `json:"type"`
	Package    string `json:"package"`
	Title      string `json:"title,omitempty"`
	Text       string `json:"text,omitempty"`
	BigText    string `json:"big_text,omitempty"`
	PostedTime int64  `json:"posted_time"`
}

// Reader decodes newline-delimited JSON events from r into sink. Malformed
// or oversized lines are logged and skipped so one bad producer line cannot
// stall the stream.
type Reader struct {
	r    io.Reader
	sink Sink
	log  zerolog.Logger
}

func NewReader(r io.Reader, sink Sink, log zerolog.Logger) *Reader {
	return &Reader{r: r, sink: sink, log: log}
}

// Run consumes the stream until EOF, a read error, or ctx cancellation.
// Returns nil on clean EOF.
func (r *Reader) Run(ctx context.Context) error {
	br := bufio.NewReaderSize(r.r, 64*1024)

	var lineNo int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event stream: %w", err)
		}

		lineNo++
		if tooLong {
			r.log.Warn().Int("line", lineNo).Msg("skipping oversized event line")
			continue
		}
		r.handleLine(lineNo, line)
	}
}

// handleLine decodes one line and forwards the event.
func (r *Reader) handleLine(lineNo int, line []byte) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return
	}

	var ev event
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		r.log.Warn().Err(err).Int("line", lineNo).Msg("skipping malformed event")
		return
	}

	switch ev.Type {
	case "posted":
		r.sink.OnPosted(capture.PostedEvent{
			Package:    ev.Package,
			Title:      ev.Title,
			Text:       ev.Text,
			BigText:    ev.BigText,
			PostedTime: ev.PostedTime,
		})
	case "removed":
		r.sink.OnRemoved(capture.RemovedEvent{
			Package:    ev.Package,
			PostedTime: ev.PostedTime,
		})
	default:
		r.log.Warn().Str("type", ev.Type).Int("line", lineNo).Msg("skipping event of unknown type")
	}
}

// readLine reads one full line. A line longer than maxLineBytes is consumed
// to its newline and reported as tooLong so the caller can keep going,
// which bufio.Scanner cannot do once it hits its token limit.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return nil, false, err
		}

		if len(buf)+len(chunk) > maxLineBytes {
			// Drain the rest of this line, then report it skipped.
			for isPrefix {
				if _, isPrefix, err = br.ReadLine(); err != nil {
					return nil, true, err
				}
			}
			return nil, true, nil
		}

		buf = append(buf, chunk...)
		if !isPrefix {
			return buf, false, nil
		}
	}
}
