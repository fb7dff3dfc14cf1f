package util

import (
	"reflect"
	"testing"
)

func TestStripPrefix(t *testing.T) {
	got := StripPrefix([]string{"A_z", "B_x", "A_a", "A_"}, "A_")
	want := []string{"", "a", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestGlobPrefixEscapes(t *testing.T) {
	if got := GlobPrefix("app_"); got != "app_*" {
		t.Fatalf("got %q", got)
	}
	if got := GlobPrefix("a*b?[c]"); got != `a\*b\?\[c\]*` {
		t.Fatalf("got %q", got)
	}
}

func TestLikePrefixEscapes(t *testing.T) {
	if got := LikePrefix("app_"); got != `app\_%` {
		t.Fatalf("got %q", got)
	}
	if got := LikePrefix(`50%\`); got != `50\%\\%` {
		t.Fatalf("got %q", got)
	}
}

func TestKiB(t *testing.T) {
	cases := map[int64]int64{0: 0, 511: 0, 512: 1, 1024: 1, 1535: 1, 1536: 2}
	for in, want := range cases {
		if got := KiB(in); got != want {
			t.Fatalf("KiB(%d)=%d want %d", in, got, want)
		}
	}
}
