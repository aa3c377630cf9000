package cmd

import "testing"

func TestNormalizeServer(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"nas.local:5666", "nas.local:5666"},
		{"https://nas.local:5666", "nas.local:5666"},
		{"http://nas.local", "nas.local"},
		{"wss://nas.local:5666/websocket", "nas.local:5666"},
		{"ws://nas.local/some/path", "nas.local"},
		{"  nas.local  ", "nas.local"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeServer(c.in); got != c.want {
			t.Errorf("normalizeServer(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
