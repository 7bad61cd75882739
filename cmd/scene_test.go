package cmd

import "testing"

func TestScenePath(t *testing.T) {
	if got := scenePath("bunny"); got != "scene/bunny.json" {
		t.Fatalf("expected scene/bunny.json; got %s", got)
	}
	if got := scenePath("assets/room.json"); got != "assets/room.json" {
		t.Fatalf("expected the explicit path untouched; got %s", got)
	}
}

func TestSceneName(t *testing.T) {
	specs := []struct {
		in, out string
	}{
		{"bunny", "bunny"},
		{"assets/room.json", "room"},
		{"scene/bunny.json", "bunny"},
	}
	for _, spec := range specs {
		if got := sceneName(spec.in); got != spec.out {
			t.Fatalf("sceneName(%q): expected %q; got %q", spec.in, spec.out, got)
		}
	}
}

func TestParseRes(t *testing.T) {
	specs := []struct {
		in       string
		w, h     int
		expError bool
	}{
		{"", 512, 512, false},
		{"1024", 1024, 1024, false},
		{"640x480", 640, 480, false},
		{"0", 0, 0, true},
		{"640x", 0, 0, true},
		{"x480", 0, 0, true},
		{"640x480x2", 0, 0, true},
		{"large", 0, 0, true},
	}

	for _, spec := range specs {
		w, h, err := parseRes(spec.in)
		if spec.expError {
			if err == nil {
				t.Fatalf("res %q: expected an error", spec.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("res %q: %v", spec.in, err)
		}
		if w != spec.w || h != spec.h {
			t.Fatalf("res %q: expected %dx%d; got %dx%d", spec.in, spec.w, spec.h, w, h)
		}
	}
}

func TestParseMode(t *testing.T) {
	flags, debug, err := parseMode("")
	if err != nil {
		t.Fatal(err)
	}
	if debug || flags.NextEvent || flags.Alpha {
		t.Fatal("expected the empty mode to set nothing")
	}

	flags, debug, err = parseMode("test_nee_alpha")
	if err != nil {
		t.Fatal(err)
	}
	if !debug || !flags.NextEvent || !flags.Alpha {
		t.Fatalf("expected all tags set; got debug=%v flags=%+v", debug, flags)
	}

	if _, _, err = parseMode("nee_bogus"); err == nil {
		t.Fatal("expected an error for an unknown tag")
	}
}
