package mqttpresence

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{name: "plain id", uri: "mqtt:alice@example.org", want: "alice@example.org"},
		{name: "wrong scheme", uri: "sip:alice@example.org", wantErr: true},
		{name: "empty id", uri: "mqtt:", wantErr: true},
		{name: "slash in id", uri: "mqtt:alice/admin", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := idFromURI(tc.uri)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTopicMapping_RoundTrip(t *testing.T) {
	const prefix = "presence"
	const uri = "mqtt:alice@example.org"

	presenceTopic, noteTopic, err := topicsForURI(prefix, uri)
	require.NoError(t, err)
	assert.Equal(t, "presence/alice@example.org/presence", presenceTopic)
	assert.Equal(t, "presence/alice@example.org/note", noteTopic)

	gotURI, leaf, err := uriFromTopic(prefix, presenceTopic)
	require.NoError(t, err)
	assert.Equal(t, uri, gotURI)
	assert.Equal(t, leafPresence, leaf)

	gotURI, leaf, err = uriFromTopic(prefix, noteTopic)
	require.NoError(t, err)
	assert.Equal(t, uri, gotURI)
	assert.Equal(t, leafNote, leaf)
}

func TestURIFromTopic_Rejects(t *testing.T) {
	for _, topic := range []string{
		"other/alice/presence",
		"presence/alice",
		"presence//presence",
		"presence/alice/location",
	} {
		_, _, err := uriFromTopic("presence", topic)
		assert.Error(t, err, "topic %q should not map to a uri", topic)
	}
}

func newHandlerTestFetcher() *Fetcher {
	return &Fetcher{
		logger: zerolog.Nop(),
		cfg:    &Config{TopicPrefix: "presence"},
		topics: make(map[string]byte),
	}
}

// fakeMessage implements the paho Message interface for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestFetcher_SupportsURI(t *testing.T) {
	f := newHandlerTestFetcher()
	assert.True(t, f.SupportsURI("mqtt:alice@example.org"))
	assert.False(t, f.SupportsURI("sip:alice@example.org"))
	assert.False(t, f.SupportsURI("mqtt:"))
}

func TestFetcher_HandleMessageFansOut(t *testing.T) {
	f := newHandlerTestFetcher()
	handler := f.MessageHandlerForTest()

	var gotURI, gotPresence, gotNote string
	f.OnPresence(func(uri, presence string) { gotURI, gotPresence = uri, presence })
	f.OnNote(func(_, note string) { gotNote = note })

	handler(nil, &fakeMessage{topic: "presence/alice@example.org/presence", payload: []byte("available\n")})
	assert.Equal(t, "mqtt:alice@example.org", gotURI)
	assert.Equal(t, "available", gotPresence, "payload should be trimmed")

	handler(nil, &fakeMessage{topic: "presence/alice@example.org/note", payload: []byte("out to lunch")})
	assert.Equal(t, "out to lunch", gotNote)

	// Messages outside the prefix or with an unknown leaf are dropped.
	gotPresence = ""
	handler(nil, &fakeMessage{topic: "telemetry/alice/presence", payload: []byte("busy")})
	handler(nil, &fakeMessage{topic: "presence/alice/location", payload: []byte("office")})
	assert.Equal(t, "", gotPresence)
}

func TestFetcher_CancelledCallbackSeesNothing(t *testing.T) {
	f := newHandlerTestFetcher()
	handler := f.MessageHandlerForTest()

	var calls int
	cancel := f.OnPresence(func(_, _ string) { calls++ })
	handler(nil, &fakeMessage{topic: "presence/a/presence", payload: []byte("busy")})
	cancel()
	handler(nil, &fakeMessage{topic: "presence/a/presence", payload: []byte("away")})

	assert.Equal(t, 1, calls)
}
