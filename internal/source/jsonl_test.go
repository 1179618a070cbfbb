package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/notifylog/internal/capture"
	"github.com/runnerr0/notifylog/internal/logging"
)

type recordingSink struct {
	posted  []capture.PostedEvent
	removed []capture.RemovedEvent
}

func (s *recordingSink) OnPosted(ev capture.PostedEvent)   { s.posted = append(s.posted, ev) }
func (s *recordingSink) OnRemoved(ev capture.RemovedEvent) { s.removed = append(s.removed, ev) }

func TestRun_DecodesEvents(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"posted","package":"com.example.mail","title":"New mail","text":"hi","posted_time":1700000000000}`,
		`{"type":"posted","package":"com.example.chat","title":"Ping","text":"","big_text":"long form body","posted_time":1700000001000}`,
		`{"type":"removed","package":"com.example.mail","posted_time":1700000000000}`,
	}, "\n")

	sink := &recordingSink{}
	r := NewReader(strings.NewReader(input), sink, logging.Nop())
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.posted, 2)
	assert.Equal(t, capture.PostedEvent{
		Package:    "com.example.mail",
		Title:      "New mail",
		Text:       "hi",
		PostedTime: 1700000000000,
	}, sink.posted[0])
	assert.Equal(t, "long form body", sink.posted[1].BigText)

	require.Len(t, sink.removed, 1)
	assert.Equal(t, capture.RemovedEvent{
		Package:    "com.example.mail",
		PostedTime: 1700000000000,
	}, sink.removed[0])
}

func TestRun_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"posted","package":"com.a","title":"one","posted_time":1}`,
		`{not json at all`,
		``,
		`   `,
		`{"type":"posted","package":"com.b","title":"two","posted_time":2}`,
	}, "\n")

	sink := &recordingSink{}
	r := NewReader(strings.NewReader(input), sink, logging.Nop())
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.posted, 2)
	assert.Equal(t, "com.a", sink.posted[0].Package)
	assert.Equal(t, "com.b", sink.posted[1].Package)
}

func TestRun_SkipsUnknownType(t *testing.T) {
	input := `{"type":"resized","package":"com.a","posted_time":1}` + "\n" +
		`{"type":"removed","package":"com.a","posted_time":1}`

	sink := &recordingSink{}
	r := NewReader(strings.NewReader(input), sink, logging.Nop())
	require.NoError(t, r.Run(context.Background()))

	assert.Empty(t, sink.posted)
	assert.Len(t, sink.removed, 1)
}

func TestRun_SkipsOversizedLine(t *testing.T) {
	// One event line well past the size cap must not kill the stream:
	// the events after it still arrive.
	huge := `{"type":"posted","package":"com.example.bloat","title":"` +
		strings.Repeat("x", 2<<20) + `","posted_time":1}`
	input := huge + "\n" +
		`{"type":"posted","package":"com.example.mail","title":"after","posted_time":2}` + "\n" +
		`{"type":"removed","package":"com.example.mail","posted_time":2}`

	sink := &recordingSink{}
	r := NewReader(strings.NewReader(input), sink, logging.Nop())
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.posted, 1)
	assert.Equal(t, "com.example.mail", sink.posted[0].Package)
	assert.Equal(t, "after", sink.posted[0].Title)
	assert.Len(t, sink.removed, 1)
}

func TestRun_OversizedLineWithoutNewlineAtEOF(t *testing.T) {
	input := `{"type":"posted","package":"com.a","title":"ok","posted_time":1}` + "\n" +
		strings.Repeat("y", 2<<20) // unterminated giant tail

	sink := &recordingSink{}
	r := NewReader(strings.NewReader(input), sink, logging.Nop())
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.posted, 1)
	assert.Equal(t, "com.a", sink.posted[0].Package)
}

func TestRun_EmptyStream(t *testing.T) {
	sink := &recordingSink{}
	r := NewReader(strings.NewReader(""), sink, logging.Nop())
	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, sink.posted)
	assert.Empty(t, sink.removed)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	r := NewReader(strings.NewReader(`{"type":"posted","package":"com.a","posted_time":1}`), sink, logging.Nop())
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
