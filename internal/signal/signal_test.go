package signal

import "testing"

func TestDecode_NoTagPresent(t *testing.T) {
	if _, ok := Decode("just some plain agent chatter"); ok {
		t.Fatal("expected no signal to decode from text with no sentinel tag")
	}
}

func TestDecode_SingleTag(t *testing.T) {
	sig, ok := Decode("work is done\n" + Tag(COMPLETE) + "\n")
	if !ok {
		t.Fatal("expected a signal to decode")
	}
	if sig != COMPLETE {
		t.Fatalf("expected COMPLETE, got %s", sig)
	}
}

func TestDecode_TieBreakFollowsScanOrder(t *testing.T) {
	text := Tag(VERIFY_FAIL) + " " + Tag(QUESTION) + " " + Tag(ROTATE)
	sig, ok := Decode(text)
	if !ok {
		t.Fatal("expected a signal to decode")
	}
	if sig != ROTATE {
		t.Fatalf("expected ROTATE to win the tie-break (earliest in scanOrder), got %s", sig)
	}
}

func TestDecode_CaseSensitive(t *testing.T) {
	if _, ok := Decode("<RALPH>complete</RALPH>"); ok {
		t.Fatal("decoding must be case-sensitive and exact")
	}
}

func TestDecode_Deterministic(t *testing.T) {
	text := Tag(GUTTER) + Tag(COMPLETE)
	first, _ := Decode(text)
	second, _ := Decode(text)
	if first != second {
		t.Fatalf("decode must be deterministic for the same input, got %s then %s", first, second)
	}
}

func TestSet_Contains(t *testing.T) {
	s := NewSet(COMPLETE, ROTATE)
	if !s.Contains(COMPLETE) {
		t.Fatal("expected set to contain COMPLETE")
	}
	if s.Contains(GUTTER) {
		t.Fatal("expected set not to contain GUTTER")
	}
}
