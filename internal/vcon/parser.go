// Package vcon parses vCon (Virtualized Conversation) container files into
// typed conversation records.
package vcon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"spa-insights-go/internal/logger"
	"spa-insights-go/internal/types"
)

// Envelope is one raw vCon entry as stored in the input file.
type Envelope struct {
	ID        string `json:"id"`
	UUID      string `json:"uuid"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	VConJSON  Body   `json:"vcon_json"`
}

// Body is the vCon container payload.
type Body struct {
	Parties  []Party       `json:"parties"`
	Dialog   []DialogEntry `json:"dialog"`
	Analysis []AnalysisRef `json:"analysis"`
}

type Party struct {
	Name         string `json:"name"`
	Tel          string `json:"tel"`
	Email        string `json:"email"`
	Location     string `json:"location"`
	Organization string `json:"organization"`
}

type DialogEntry struct {
	Type     string  `json:"type"`
	Party    int     `json:"party"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Body     string  `json:"body"`
	Mimetype string  `json:"mimetype"`
	URL      string  `json:"url"`
}

type AnalysisRef struct {
	Type   string          `json:"type"`
	Dialog int             `json:"dialog"`
	Vendor string          `json:"vendor"`
	Body   json.RawMessage `json:"body"`
}

// ParseFile loads a vCon file (a JSON array of envelopes, or a single
// envelope) and parses every record. A top-level failure returns
// MalformedInputError; per-record failures are returned alongside the
// successfully parsed records so the caller can count and log them.
func ParseFile(path string) ([]types.ConversationRecord, []RecordError, error) {
	log := logger.New().WithComponent("vcon.parser").WithField("path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &MalformedInputError{Path: path, Err: err}
	}

	envelopes, err := decodeEnvelopes(data)
	if err != nil {
		return nil, nil, &MalformedInputError{Path: path, Err: err}
	}
	log.WithField("conversations", len(envelopes)).Info("loaded vcon envelopes")

	var records []types.ConversationRecord
	var recordErrs []RecordError
	for i, env := range envelopes {
		rec, err := ParseRecord(env)
		if err != nil {
			recordErrs = append(recordErrs, RecordError{Index: i, Err: err})
			log.WithError(err).WithField("index", i).Warn("skipping malformed record")
			continue
		}
		records = append(records, rec)
	}
	log.WithFields(map[string]interface{}{
		"parsed":  len(records),
		"skipped": len(recordErrs),
	}).Info("vcon parse complete")
	return records, recordErrs, nil
}

func decodeEnvelopes(data []byte) ([]Envelope, error) {
	var list []Envelope
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single Envelope
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("neither a vcon array nor a vcon object: %w", err)
	}
	return []Envelope{single}, nil
}

// ParseRecord validates and flattens one envelope. Required: an identifier,
// a parsable timestamp, and at least one text utterance. Optional agent and
// location fields fall back to the "unknown" sentinel. The input is never
// mutated and no state carries across records.
func ParseRecord(env Envelope) (types.ConversationRecord, error) {
	id := env.ID
	if id == "" {
		id = env.UUID
	}
	if id == "" {
		return types.ConversationRecord{}, &MalformedRecordError{Field: "id"}
	}

	if env.CreatedAt == "" {
		return types.ConversationRecord{}, &MalformedRecordError{ID: id, Field: "created_at"}
	}
	ts, err := time.Parse(time.RFC3339, env.CreatedAt)
	if err != nil {
		return types.ConversationRecord{}, &MalformedRecordError{ID: id, Field: "created_at", Err: err}
	}

	roles := make([]string, len(env.VConJSON.Parties))
	for i, p := range env.VConJSON.Parties {
		roles[i] = partyRole(p, i)
	}

	var (
		utterances   []types.Utterance
		duration     float64
		hasRecording bool
	)
	for _, d := range env.VConJSON.Dialog {
		duration += d.Duration
		if d.Type == "recording" {
			hasRecording = true
			continue
		}
		if d.Type != "" && d.Type != "text" {
			continue
		}
		if strings.TrimSpace(d.Body) == "" {
			continue
		}
		speaker := types.SpeakerAgent
		if d.Party >= 0 && d.Party < len(roles) {
			speaker = roles[d.Party]
		} else if d.Party != 0 {
			speaker = types.SpeakerCustomer
		}
		utterances = append(utterances, types.Utterance{
			Speaker:         speaker,
			Text:            d.Body,
			StartSeconds:    d.Start,
			DurationSeconds: d.Duration,
		})
	}
	if len(utterances) == 0 {
		return types.ConversationRecord{}, &MalformedRecordError{ID: id, Field: "dialog"}
	}

	agent := pickParty(env.VConJSON.Parties, roles, types.SpeakerAgent, 0)
	customer := pickParty(env.VConJSON.Parties, roles, types.SpeakerCustomer, 1)

	rec := types.ConversationRecord{
		ID:              id,
		Subject:         env.Subject,
		Timestamp:       ts,
		AgentName:       orUnknown(agent.Name),
		AgentEmail:      agent.Email,
		CustomerName:    orUnknown(customer.Name),
		CustomerPhone:   customer.Tel,
		Location:        orUnknown(agent.Location),
		Utterances:      utterances,
		DurationSeconds: duration,
		MessageCount:    len(env.VConJSON.Dialog),
		HasRecording:    hasRecording,
	}
	rec.Metadata = map[string]string{
		"conversation_type": classifyConversationType(allText(utterances)),
	}
	if len(env.VConJSON.Analysis) > 0 {
		rec.Metadata["has_analysis"] = "true"
	}
	return rec, nil
}

// partyRole decides agent vs customer from party attributes, defaulting to
// the vCon convention that party 0 is the agent.
func partyRole(p Party, index int) string {
	name := strings.ToLower(p.Name)
	for _, ind := range []string{"support", "agent", "rep", "service"} {
		if strings.Contains(name, ind) {
			return types.SpeakerAgent
		}
	}
	email := strings.ToLower(p.Email)
	if strings.Contains(email, "feelgoodspas") || strings.Contains(email, "spa") {
		return types.SpeakerAgent
	}
	if index == 0 {
		return types.SpeakerAgent
	}
	return types.SpeakerCustomer
}

func pickParty(parties []Party, roles []string, role string, fallbackIdx int) Party {
	for i, r := range roles {
		if r == role {
			return parties[i]
		}
	}
	if fallbackIdx < len(parties) {
		return parties[fallbackIdx]
	}
	return Party{}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return types.Unknown
	}
	return s
}

func allText(utterances []types.Utterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, " ")
}

var conversationTypeKeywords = map[string][]string{
	"booking":         {"appointment", "booking", "schedule", "reserve", "book"},
	"complaint":       {"complaint", "problem", "issue", "unhappy", "dissatisfied"},
	"billing":         {"billing", "payment", "charge", "invoice", "refund"},
	"service_inquiry": {"service", "treatment", "massage", "facial", "spa"},
}

func classifyConversationType(text string) string {
	lower := strings.ToLower(text)
	best := "general"
	bestCount := 0
	// fixed order so ties resolve the same way every run
	for _, ct := range []string{"booking", "complaint", "billing", "service_inquiry"} {
		count := 0
		for _, kw := range conversationTypeKeywords[ct] {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = ct
		}
	}
	return best
}
