package vcon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-insights-go/internal/types"
)

func sampleEnvelope() Envelope {
	return Envelope{
		ID:        "conv-001",
		Subject:   "Booking request",
		CreatedAt: "2025-03-14T10:30:00Z",
		VConJSON: Body{
			Parties: []Party{
				{Name: "Sarah (Support)", Email: "sarah@feelgoodspas.com", Location: "Austin"},
				{Name: "Jamie Doe", Tel: "+15125550134"},
			},
			Dialog: []DialogEntry{
				{Type: "text", Party: 0, Duration: 30, Body: "Thank you for calling Feel Good Spas, this is Sarah."},
				{Type: "text", Party: 1, Duration: 45, Body: "Hi, I'd like to book a massage appointment."},
				{Type: "text", Party: 0, Duration: 60, Body: "Absolutely, you're all booked. Have a great day!"},
			},
		},
	}
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord(sampleEnvelope())
	require.NoError(t, err)

	assert.Equal(t, "conv-001", rec.ID)
	assert.Equal(t, "Sarah (Support)", rec.AgentName)
	assert.Equal(t, "Jamie Doe", rec.CustomerName)
	assert.Equal(t, "Austin", rec.Location)
	assert.Equal(t, 3, rec.MessageCount)
	assert.InDelta(t, 135.0, rec.DurationSeconds, 1e-9)
	require.Len(t, rec.Utterances, 3)
	assert.Equal(t, types.SpeakerAgent, rec.Utterances[0].Speaker)
	assert.Equal(t, types.SpeakerCustomer, rec.Utterances[1].Speaker)
	assert.Equal(t, "booking", rec.Metadata["conversation_type"])
}

func TestParseRecordIdempotent(t *testing.T) {
	env := sampleEnvelope()
	first, err := ParseRecord(env)
	require.NoError(t, err)
	second, err := ParseRecord(env)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseRecordRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Envelope)
		field  string
	}{
		{"missing id", func(e *Envelope) { e.ID = ""; e.UUID = "" }, "id"},
		{"missing timestamp", func(e *Envelope) { e.CreatedAt = "" }, "created_at"},
		{"bad timestamp", func(e *Envelope) { e.CreatedAt = "yesterday" }, "created_at"},
		{"no utterances", func(e *Envelope) { e.VConJSON.Dialog = nil }, "dialog"},
		{"only empty bodies", func(e *Envelope) {
			e.VConJSON.Dialog = []DialogEntry{{Type: "text", Party: 0, Body: "   "}}
		}, "dialog"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := sampleEnvelope()
			tc.mutate(&env)
			_, err := ParseRecord(env)
			var mre *MalformedRecordError
			require.ErrorAs(t, err, &mre)
			assert.Equal(t, tc.field, mre.Field)
		})
	}
}

func TestParseRecordUUIDFallbackAndUnknowns(t *testing.T) {
	env := sampleEnvelope()
	env.ID = ""
	env.UUID = "uuid-42"
	env.VConJSON.Parties = []Party{{}, {}}

	rec, err := ParseRecord(env)
	require.NoError(t, err)
	assert.Equal(t, "uuid-42", rec.ID)
	assert.Equal(t, types.Unknown, rec.AgentName)
	assert.Equal(t, types.Unknown, rec.CustomerName)
	assert.Equal(t, types.Unknown, rec.Location)
}

func TestParseRecordRecordingDialog(t *testing.T) {
	env := sampleEnvelope()
	env.VConJSON.Dialog = append(env.VConJSON.Dialog, DialogEntry{
		Type: "recording", Party: 0, Duration: 120, URL: "https://example.com/call.wav",
	})
	rec, err := ParseRecord(env)
	require.NoError(t, err)
	assert.True(t, rec.HasRecording)
	assert.Len(t, rec.Utterances, 3)
	assert.InDelta(t, 255.0, rec.DurationSeconds, 1e-9)
}

func TestParseFileSkipsMalformedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vcons.json")
	data := `[
		{"id":"ok-1","created_at":"2025-03-14T10:30:00Z","vcon_json":{"parties":[{"name":"Agent Amy"},{"name":"Casey"}],"dialog":[{"type":"text","party":1,"body":"Hello"}]}},
		{"id":"bad-1","created_at":"2025-03-14T11:00:00Z","vcon_json":{"parties":[],"dialog":[]}},
		{"id":"ok-2","created_at":"2025-03-15T09:00:00Z","vcon_json":{"parties":[{"name":"Agent Bob"}],"dialog":[{"type":"text","party":0,"body":"Hi there"}]}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	records, recordErrs, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	require.Len(t, recordErrs, 1)
	assert.Equal(t, 1, recordErrs[0].Index)
	var mre *MalformedRecordError
	require.ErrorAs(t, recordErrs[0].Err, &mre)
	assert.Equal(t, "bad-1", mre.ID)
}

func TestParseFileMalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	_, _, err := ParseFile(path)
	var mie *MalformedInputError
	require.ErrorAs(t, err, &mie)

	_, _, err = ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	require.True(t, errors.As(err, &mie))
}

func TestParseFileSingleObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.json")
	data := `{"id":"solo","created_at":"2025-03-14T10:30:00Z","vcon_json":{"parties":[{"name":"Agent"}],"dialog":[{"type":"text","party":0,"body":"Hello"}]}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	records, recordErrs, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, recordErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "solo", records[0].ID)
}
