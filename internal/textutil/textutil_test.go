package textutil

import "testing"

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"launch_teaser.v2", "Launch Teaser V2"},
		{"  spring---sale ", "Spring Sale"},
		{"", "Untitled"},
		{"???", "Untitled"},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in, "Untitled"); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Launch Teaser", "launch_teaser"},
		{"A/B: test?", "a_b__test"},
		{"", "untitled"},
		{"__--__", "untitled"},
	}
	for _, tc := range cases {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
