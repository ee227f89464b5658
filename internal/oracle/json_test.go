package oracle

import "testing"

func TestParseJSONResponse(t *testing.T) {
	payload := ParseJSONResponse(`{"event_type": "injury", "confidence": 0.9}`)
	if payload == nil {
		t.Fatal("expected plain JSON to parse")
	}
	if payload["event_type"] != "injury" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if c, ok := payload["confidence"].(float64); !ok || c != 0.9 {
		t.Errorf("confidence should decode as float64, got %v", payload["confidence"])
	}
}

func TestParseJSONResponseCodeFence(t *testing.T) {
	response := "```json\n{\"summary\": \"ok\"}\n```"
	payload := ParseJSONResponse(response)
	if payload == nil || payload["summary"] != "ok" {
		t.Errorf("fenced JSON should parse, got %v", payload)
	}

	bare := "```\n{\"summary\": \"ok\"}\n```"
	if payload := ParseJSONResponse(bare); payload == nil || payload["summary"] != "ok" {
		t.Errorf("unlabeled fence should parse, got %v", payload)
	}
}

func TestParseJSONResponseMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"The player is injured.",
		`{"unterminated": `,
		`[1, 2, 3]`, // top level must be an object
	}
	for _, input := range cases {
		if payload := ParseJSONResponse(input); payload != nil {
			t.Errorf("input %q should return nil, got %v", input, payload)
		}
	}
}
