package dialogue

import (
	"strings"
	"testing"
)

const validResponse = `{
  "utterance": "Well met, traveler. The forge is hot today.",
  "emotion": "happy",
  "style_tags": ["casual"],
  "behavior_directive": "open_shop",
  "memory_writes": [
    {"salience": 1, "text": "Player greeted me politely", "keys": ["greeting"], "private": true}
  ],
  "public_events": [
    {"event_type": "shop_opened", "payload": {"shop": "forge"}}
  ],
  "voice_hint": {"voice_preset": "masculine_deep", "ssml_style": "calm"}
}`

func TestValidateResponse_Valid(t *testing.T) {
	resp, cerr := ValidateResponse(validResponse)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if resp.Utterance != "Well met, traveler. The forge is hot today." {
		t.Fatalf("utterance = %q", resp.Utterance)
	}
	if string(resp.Emotion) != "happy" || string(resp.BehaviorDirective) != "open_shop" {
		t.Fatalf("enums = %s/%s", resp.Emotion, resp.BehaviorDirective)
	}
	if len(resp.MemoryWrites) != 1 || !resp.MemoryWrites[0].IsPrivate() {
		t.Fatalf("memory writes = %+v", resp.MemoryWrites)
	}
	if len(resp.PublicEvents) != 1 || resp.PublicEvents[0].EventType != "shop_opened" {
		t.Fatalf("public events = %+v", resp.PublicEvents)
	}
	if resp.VoiceHint == nil || string(resp.VoiceHint.SSMLStyle) != "calm" {
		t.Fatalf("voice hint = %+v", resp.VoiceHint)
	}
}

func TestValidateResponse_MinimalValid(t *testing.T) {
	resp, cerr := ValidateResponse(`{"utterance":"Hm.","emotion":"neutral","behavior_directive":"none"}`)
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if len(resp.StyleTags) != 0 || resp.VoiceHint != nil {
		t.Fatalf("optional fields should be empty: %+v", resp)
	}
}

func TestValidateResponse_MalformedEncoding(t *testing.T) {
	for _, raw := range []string{
		``,
		`{"utterance": "unterminated`,
		"```json\n{}\n```",
		`not json at all`,
	} {
		_, cerr := ValidateResponse(raw)
		if cerr == nil {
			t.Fatalf("raw %q: expected error", raw)
		}
		if cerr.Kind != MalformedEncoding {
			t.Fatalf("raw %q: kind = %s, want malformed_encoding", raw, cerr.Kind)
		}
	}
}

func TestValidateResponse_NonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"a string"`, `42`, `null`, `true`} {
		_, cerr := ValidateResponse(raw)
		if cerr == nil {
			t.Fatalf("raw %q: expected error", raw)
		}
		if cerr.Kind != ContractViolation {
			t.Fatalf("raw %q: kind = %s, want contract_violation", raw, cerr.Kind)
		}
	}
}

func TestValidateResponse_ContractViolations(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantField string
	}{
		{
			name:      "unknown top-level field",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","mood":"odd"}`,
			wantField: "mood",
		},
		{
			name:      "missing utterance",
			raw:       `{"emotion":"neutral","behavior_directive":"none"}`,
			wantField: "utterance",
		},
		{
			name:      "empty utterance",
			raw:       `{"utterance":"","emotion":"neutral","behavior_directive":"none"}`,
			wantField: "utterance",
		},
		{
			name:      "utterance too long",
			raw:       `{"utterance":"` + strings.Repeat("a", 321) + `","emotion":"neutral","behavior_directive":"none"}`,
			wantField: "utterance",
		},
		{
			name:      "utterance wrong type",
			raw:       `{"utterance":42,"emotion":"neutral","behavior_directive":"none"}`,
			wantField: "utterance",
		},
		{
			name:      "missing emotion",
			raw:       `{"utterance":"x","behavior_directive":"none"}`,
			wantField: "emotion",
		},
		{
			name:      "unknown emotion",
			raw:       `{"utterance":"x","emotion":"gleeful","behavior_directive":"none"}`,
			wantField: "emotion",
		},
		{
			name:      "missing behavior directive",
			raw:       `{"utterance":"x","emotion":"neutral"}`,
			wantField: "behavior_directive",
		},
		{
			name:      "unknown behavior directive",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"moonwalk"}`,
			wantField: "behavior_directive",
		},
		{
			name:      "too many style tags",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","style_tags":["formal","casual","whisper","shout"]}`,
			wantField: "style_tags",
		},
		{
			name:      "unknown style tag",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","style_tags":["sarcastic"]}`,
			wantField: "style_tags",
		},
		{
			name:      "too many memory writes",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","memory_writes":[{"salience":1,"text":"a"},{"salience":1,"text":"b"},{"salience":1,"text":"c"}]}`,
			wantField: "memory_writes",
		},
		{
			name:      "memory write salience out of range",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","memory_writes":[{"salience":4,"text":"a"}]}`,
			wantField: "memory_writes[0].salience",
		},
		{
			name:      "memory write text too long",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","memory_writes":[{"salience":1,"text":"` + strings.Repeat("b", 161) + `"}]}`,
			wantField: "memory_writes[0].text",
		},
		{
			name:      "memory write too many keys",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","memory_writes":[{"salience":1,"text":"a","keys":["1","2","3","4","5"]}]}`,
			wantField: "memory_writes[0].keys",
		},
		{
			name:      "too many public events",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","public_events":[{"event_type":"a"},{"event_type":"b"}]}`,
			wantField: "public_events",
		},
		{
			name:      "public event missing type",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","public_events":[{"payload":{}}]}`,
			wantField: "public_events[0].event_type",
		},
		{
			name:      "unknown ssml style",
			raw:       `{"utterance":"x","emotion":"neutral","behavior_directive":"none","voice_hint":{"ssml_style":"booming"}}`,
			wantField: "voice_hint.ssml_style",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cerr := ValidateResponse(tt.raw)
			if cerr == nil {
				t.Fatal("expected error")
			}
			if cerr.Kind != ContractViolation {
				t.Fatalf("kind = %s, want contract_violation", cerr.Kind)
			}
			if cerr.Field != tt.wantField {
				t.Fatalf("field = %q, want %q (reason: %s)", cerr.Field, tt.wantField, cerr.Reason)
			}
		})
	}
}

// Nested extras inside known objects are tolerated; only the top level is closed.
func TestValidateResponse_NestedExtrasIgnored(t *testing.T) {
	raw := `{"utterance":"x","emotion":"neutral","behavior_directive":"none","voice_hint":{"ssml_style":"calm","pitch":"high"}}`
	if _, cerr := ValidateResponse(raw); cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
}

func TestValidateResponse_UtteranceAtLimit(t *testing.T) {
	raw := `{"utterance":"` + strings.Repeat("a", 320) + `","emotion":"neutral","behavior_directive":"none"}`
	if _, cerr := ValidateResponse(raw); cerr != nil {
		t.Fatalf("320 chars should pass: %v", cerr)
	}
}

func TestContractError_Error(t *testing.T) {
	e := violation("emotion", `unknown emotion "gleeful"`)
	if !strings.Contains(e.Error(), "emotion") || !strings.Contains(e.Error(), "contract_violation") {
		t.Fatalf("Error() = %q", e.Error())
	}
}
