package canid

import "testing"

func TestDecodePDU1DestinationSpecific(t *testing.T) {
	id, ok := Encode(6, 0xEF00, 0x20, 0x30)
	if !ok {
		t.Fatalf("expected valid encode")
	}
	got := Decode(id)
	want := Identifier{Priority: 6, PGN: 0xEF00, Source: 0x20, Destination: 0x30}
	if got != want {
		t.Fatalf("decode mismatch: got %+v want %+v", got, want)
	}
}

func TestDecodePDU2Broadcast(t *testing.T) {
	id, ok := Encode(6, 0xFECA, 0x20, 0xFF)
	if !ok {
		t.Fatalf("expected valid encode")
	}
	got := Decode(id)
	want := Identifier{Priority: 6, PGN: 0xFECA, Source: 0x20, Destination: 0xFF}
	if got != want {
		t.Fatalf("decode mismatch: got %+v want %+v", got, want)
	}
}

func TestEncodeBroadcastsDestinationSpecificPGN(t *testing.T) {
	// A destination-specific PGN may still be broadcast: the destination
	// byte (PS) becomes 0xFF while the PGN's own PF byte is untouched.
	id, ok := Encode(6, 0xEF00, 0x20, 0xFF)
	if !ok {
		t.Fatalf("expected PDU1 broadcast form to encode")
	}
	got := Decode(id)
	want := Identifier{Priority: 6, PGN: 0xEF00, Source: 0x20, Destination: 0xFF}
	if got != want {
		t.Fatalf("decode mismatch: got %+v want %+v", got, want)
	}
}

func TestEncodeRejectsBadPriority(t *testing.T) {
	if _, ok := Encode(8, 0xFECA, 0x01, 0xFF); ok {
		t.Fatalf("expected priority 8 to be rejected")
	}
}

func TestEncodeRejectsNullDestinationWithPDU1(t *testing.T) {
	if _, ok := Encode(3, 0xEF00, 0x01, 254); ok {
		t.Fatalf("expected a destination with no claimed address (254) to be rejected")
	}
}

func TestEncodeRejectsNonBroadcastDestinationWithPDU2(t *testing.T) {
	if _, ok := Encode(3, 0xFECA, 0x01, 0x10); ok {
		t.Fatalf("expected broadcast PGN with non-broadcast destination to be rejected")
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		priority        uint8
		pgn             uint32
		source, destAdr uint8
	}{
		{0, 0x0000, 0x00, 0x01},
		{7, 0xEF00, 0x80, 0x02},
		{6, 0xFECA, 0x20, 0xFF},
		{3, 0x1EF00, 0x10, 0x20},
	}

	for _, c := range cases {
		id, ok := Encode(c.priority, c.pgn, c.source, c.destAdr)
		if !ok {
			t.Fatalf("encode(%v) unexpectedly failed", c)
		}
		got := Decode(id)
		if got.Priority != c.priority || got.PGN != c.pgn || got.Source != c.source || got.Destination != c.destAdr {
			t.Fatalf("round trip mismatch for %+v: got %+v", c, got)
		}
	}
}

func TestSingleFrameScenarioIdentifier(t *testing.T) {
	// Scenario 4 from spec.md section 8: priority 6, PGN 0xEF00, src 0x20,
	// no destination control function (broadcast 0xFF).
	id, ok := Encode(6, 0xEF00, 0x20, 0xFF)
	if !ok {
		t.Fatalf("expected broadcast send to encode")
	}
	got := Decode(id)
	if got.Priority != 6 || got.PGN != 0xEF00 || got.Source != 0x20 || got.Destination != 0xFF {
		t.Fatalf("unexpected decode: %+v", got)
	}
}
