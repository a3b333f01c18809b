package sanitize

import "testing"

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"My Movie.mp4":       "my_movie.mp4",
		"Weird-Name (1).mov": "weird_name_1.mov",
		"already_ok.wav":      "already_ok.wav",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileNameIdempotent(t *testing.T) {
	in := "Some Crazy!! File@@.MP4"
	once := FileName(in)
	twice := FileName(once)
	if once != twice {
		t.Errorf("FileName not idempotent: %q then %q", once, twice)
	}
}

func TestDirName(t *testing.T) {
	got := DirName("My Show - Act 1")
	want := "my_show___act_1"
	if got != want {
		t.Errorf("DirName = %q, want %q", got, want)
	}
	if want2 := DirName(got); want2 != got {
		t.Errorf("DirName not idempotent: %q then %q", got, want2)
	}
}

func TestDirNamePermitIncrementKeepsHyphen(t *testing.T) {
	got := DirNamePermitIncrement("my_show-002")
	if got != "my_show-002" {
		t.Errorf("DirNamePermitIncrement = %q, want my_show-002", got)
	}
}

func TestFileNameTruncatesLongInput(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	got := FileName(string(long))
	if len(got) > maxNameBytes {
		t.Errorf("FileName did not truncate: len=%d", len(got))
	}
}

func TestNameCapsLength(t *testing.T) {
	long := make([]rune, maxDisplayName+50)
	for i := range long {
		long[i] = 'x'
	}
	got := Name(string(long))
	if len([]rune(got)) != maxDisplayName {
		t.Errorf("Name did not cap at %d runes, got %d", maxDisplayName, len([]rune(got)))
	}
}

func TestDescriptionShortStringUnchanged(t *testing.T) {
	s := "a short description"
	if got := Description(s); got != s {
		t.Errorf("Description(%q) = %q, want unchanged", s, got)
	}
}
