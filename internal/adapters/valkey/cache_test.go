package valkey

import "testing"

func TestCache_KeyPrefix(t *testing.T) {
	if got := (&Cache{prefix: "cafelog"}).key("fog:png:1"); got != "cafelog:fog:png:1" {
		t.Errorf("unexpected key %q", got)
	}
	if got := (&Cache{}).key("cafes:stats"); got != "cafes:stats" {
		t.Errorf("unexpected key %q", got)
	}
}
