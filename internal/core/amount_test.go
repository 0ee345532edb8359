package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.25", "12.25", true},
		{"12,25", "12.25", true},
		{" 150 ", "150", true},
		{"0", "", false},
		{"-5", "", false},
		{"", "", false},
		{"abc", "", false},
		{"12.2.5", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("%q: got %s, want %s", tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error, got %s", tc.in, got)
		}
	}
}

func TestParseNonNegative(t *testing.T) {
	if got, err := ParseNonNegative("0"); err != nil || !got.IsZero() {
		t.Fatalf("zero should parse, got %s err %v", got, err)
	}
	if _, err := ParseNonNegative("-0.1"); err == nil {
		t.Fatal("negative odometer should be rejected")
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"50", "50.00"},
		{"122.5", "122.50"},
		{"10.666666", "10.67"},
		{"-20.125", "-20.13"},
	}
	for _, tc := range cases {
		if got := FormatMoney(dec(tc.in)); got != tc.want {
			t.Fatalf("FormatMoney(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
