package models

import "testing"

func TestCompositeCursorRoundTrip(t *testing.T) {
	cases := []struct {
		value string
		id    int
	}{
		{"2025-03-15", 42},
		{"2025-03-15 10:30:00", 1},
		{"", 0},
	}
	for _, tc := range cases {
		encoded := EncodeCompositeCursor(tc.value, tc.id)
		value, id := DecodeCompositeCursor(&encoded)
		if value != tc.value || id != tc.id {
			t.Fatalf("round trip of (%q, %d) gave (%q, %d)", tc.value, tc.id, value, id)
		}
	}
}

func TestDecodeCompositeCursor_Malformed(t *testing.T) {
	cases := []string{
		"not base64!!",
		EncodeCursor("no separator"),
		EncodeCursor("too|many|parts"),
		EncodeCursor("value|notanumber"),
	}
	for _, c := range cases {
		cursor := c
		value, id := DecodeCompositeCursor(&cursor)
		if value != "" || id != 0 {
			t.Fatalf("malformed cursor %q expected zero values, got (%q, %d)", c, value, id)
		}
	}

	value, id := DecodeCompositeCursor(nil)
	if value != "" || id != 0 {
		t.Fatalf("nil cursor expected zero values, got (%q, %d)", value, id)
	}
}
