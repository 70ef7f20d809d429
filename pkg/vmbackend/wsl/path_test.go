package wsl

import "testing"

func TestTranslatePath(t *testing.T) {
	cases := map[string]string{
		`C:\Users\me\app`:    "/mnt/c/Users/me/app",
		`D:\workspace`:       "/mnt/d/workspace",
		`c:\foo\bar\baz.txt`: "/mnt/c/foo/bar/baz.txt",
	}
	for in, want := range cases {
		got, err := translatePath(in)
		if err != nil {
			t.Fatalf("translatePath(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("translatePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslatePath_RejectsRelative(t *testing.T) {
	if _, err := translatePath("relative\\path"); err == nil {
		t.Error("expected error for relative path")
	}
}
