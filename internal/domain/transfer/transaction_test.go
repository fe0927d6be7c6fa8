package transfer

import "testing"

func TestStatusMessages(t *testing.T) {
	seen := map[string]Status{}
	for _, s := range AllStatuses {
		msg := s.Message()
		if msg == "Unknown status" {
			t.Fatalf("%s has no message", s)
		}
		if prev, dup := seen[msg]; dup {
			t.Fatalf("%s and %s share message %q", s, prev, msg)
		}
		seen[msg] = s
	}
	if got := Status("BOGUS").Message(); got != "Unknown status" {
		t.Fatalf("unknown: got=%q", got)
	}
}
