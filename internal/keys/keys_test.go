package keys

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestJoinAndStrip(t *testing.T) {
	k := Join("mx", "foo")
	if k != "mx:foo" {
		t.Fatalf("Join: got %q", k)
	}
	if got, ok := Strip("mx", k); !ok || got != "foo" {
		t.Fatalf("Strip: got %q ok=%v", got, ok)
	}
	if _, ok := Strip("other", k); ok {
		t.Fatalf("Strip should reject foreign namespace")
	}
	// empty namespace still owns the separator
	if got := Join("", "foo"); got != ":foo" {
		t.Fatalf("Join empty ns: got %q", got)
	}
}

func TestSafeBoundsLongKeys(t *testing.T) {
	short := "mx:short"
	if Safe(short, 255) != short {
		t.Fatalf("short key must pass through")
	}
	long := "mx:" + strings.Repeat("a", 400)
	s := Safe(long, 255)
	if len(s) != 255 {
		t.Fatalf("len=%d want 255", len(s))
	}
	if !strings.HasPrefix(s, "mx:aaa") || !strings.Contains(s, "#") {
		t.Fatalf("unexpected safe key %q", s)
	}
	// deterministic and distinct per input
	if Safe(long, 255) != s {
		t.Fatalf("Safe is not deterministic")
	}
	other := "mx:" + strings.Repeat("a", 399) + "b"
	if Safe(other, 255) == s {
		t.Fatalf("distinct long keys collided")
	}
	if Safe(long, 0) != long {
		t.Fatalf("max<=0 must disable bounding")
	}
}

func TestSafeKeepsUTF8Valid(t *testing.T) {
	long := "mx:" + strings.Repeat("é", 300)
	s := Safe(long, 255)
	if !utf8.ValidString(s) || len(s) > 255 {
		t.Fatalf("invalid safe key: len=%d valid=%v", len(s), utf8.ValidString(s))
	}
}

func TestUniq(t *testing.T) {
	got := Uniq([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
}
