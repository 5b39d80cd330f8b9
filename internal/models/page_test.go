package models

import "testing"

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false", c)
		}
	}
	for _, c := range []string{"", "Inbox", "someday", "trash"} {
		if ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = true", c)
		}
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags(" go , db ,, notes ")
	want := []string{"go", "db", "notes"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
	if SplitTags("") != nil {
		t.Errorf("empty string should split to nil")
	}
}

func TestCanonicalTags(t *testing.T) {
	cases := []struct{ in, want string }{
		{"go, db ,go", "go,db"},
		{" a ,, b ", "a,b"},
		{"", ""},
		{"solo", "solo"},
	}
	for _, tc := range cases {
		if got := CanonicalTags(tc.in); got != tc.want {
			t.Errorf("CanonicalTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
