package realtime_test

import (
	"encoding/json"
	"testing"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/realtime"
)

func TestNormalizePayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "empty payload",
			raw:  "",
			want: map[string]any{},
		},
		{
			name: "canonical keys pass through",
			raw:  `{"conversation_id":"conv_1","content":"hi"}`,
			want: map[string]any{"conversation_id": "conv_1", "content": "hi"},
		},
		{
			name: "camelCase aliases rewritten",
			raw:  `{"conversationId":"conv_1","messageId":"msg_1","replyTo":"msg_0"}`,
			want: map[string]any{"conversation_id": "conv_1", "message_id": "msg_1", "reply_to_id": "msg_0"},
		},
		{
			name: "canonical key wins over alias",
			raw:  `{"conversation_id":"conv_real","convId":"conv_stale"}`,
			want: map[string]any{"conversation_id": "conv_real"},
		},
		{
			name: "short aliases",
			raw:  `{"upTo":"msg_9","from":"alice"}`,
			want: map[string]any{"up_to_message_id": "msg_9", "sender_id": "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := realtime.NormalizePayload(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Fatalf("key %q: expected %v, got %v", key, want, got[key])
				}
			}
		})
	}

	t.Run("malformed payload", func(t *testing.T) {
		if _, err := realtime.NormalizePayload(json.RawMessage(`{"broken`)); err == nil {
			t.Fatal("expected an error for malformed JSON")
		}
	})
}

func TestEventMarshal(t *testing.T) {
	event := &realtime.Event{
		Event: realtime.EventMessageNew,
		Ref:   "client-ref-1",
		Payload: map[string]any{
			"id": "msg_1",
		},
	}

	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("event should marshal to valid JSON: %v", err)
	}
	if decoded["event"] != realtime.EventMessageNew || decoded["ref"] != "client-ref-1" {
		t.Fatalf("unexpected frame %v", decoded)
	}

	bare := &realtime.Event{Event: realtime.EventPong}
	data, err = bare.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"event":"pong"}` {
		t.Fatalf("empty ref and payload should be omitted, got %s", data)
	}
}
