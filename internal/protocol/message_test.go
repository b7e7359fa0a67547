package protocol

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/Mesh/internal/domain"
)

func TestEncodeDecodeJoin(t *testing.T) {
	data, err := Encode(TypeJoin, JoinPayload{RoomID: "ABC123", DisplayName: "alice"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != TypeJoin {
		t.Fatalf("type = %q", msg.Type)
	}
	var p JoinPayload
	if err := msg.Into(&p); err != nil {
		t.Fatalf("into: %v", err)
	}
	if p.RoomID != "ABC123" || p.DisplayName != "alice" {
		t.Errorf("payload = %+v", p)
	}
}

func TestOpaqueSDPSurvivesRelay(t *testing.T) {
	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`)
	data, err := Encode(TypeOffer, SessionPayload{SDP: sdp, From: "a"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var p SessionPayload
	if err := msg.Into(&p); err != nil {
		t.Fatalf("into: %v", err)
	}
	if string(p.SDP) != string(sdp) {
		t.Errorf("sdp = %s, want %s", p.SDP, sdp)
	}
	if p.From != domain.ConnectionID("a") || p.To != "" {
		t.Errorf("from/to = %q/%q", p.From, p.To)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not json", `{"payload":{}}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%q) succeeded", in)
		}
	}
}

func TestNilPayloadOmitted(t *testing.T) {
	data, err := Encode(TypePong, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `{"type":"pong"}` {
		t.Errorf("frame = %s", data)
	}
	msg, _ := Decode(data)
	if err := msg.Into(&struct{}{}); err == nil {
		t.Error("Into on empty payload should fail")
	}
}
