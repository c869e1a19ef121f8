package names

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ねね", "ねね"},
		{"ご ねね", "ねね"},
		{"ぐ ねね", "ねね"},
		{"ご　ねね", "ねね"}, // full-width space after marker
		{"ごねね", "ねね"},
		{"  ねね  ", "ねね"},
		{"ご ねね / ぐ ねね", "ねね"},
		{"ねね / まい", "ねね"},
		{"ま い", "まい"}, // internal whitespace dropped for hashing
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyIdempotent(t *testing.T) {
	inputs := []string{"ご ねね", "ぐ　まい / ご まい", "ねね", "ご", "ごご ねね", "m i x"}
	for _, in := range inputs {
		once := Key(in)
		if twice := Key(once); twice != once {
			t.Errorf("Key not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestDisplayPreservesInnerSpace(t *testing.T) {
	if got := Display("ご ま い"); got != "ま い" {
		t.Errorf("Display = %q, want %q", got, "ま い")
	}
	if got := Display("ま い / ご ねね"); got != "ま い" {
		t.Errorf("Display = %q, want %q", got, "ま い")
	}
}
