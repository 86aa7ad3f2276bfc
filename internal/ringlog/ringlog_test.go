package ringlog_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/brisklabs/dwarfview/internal/ringlog"
)

func TestCentralLogger(t *testing.T) {
	log := ringlog.NewLogger(100)
	w := &strings.Builder{}

	log.Write(w)
	expectEquality(t, w.String(), "")

	log.Log(ringlog.Allow, "test", "this is a test")
	log.Write(w)
	expectEquality(t, w.String(), "test: this is a test\n")

	w.Reset()

	log.Log(ringlog.Allow, "test2", "this is another test")
	log.Write(w)
	expectEquality(t, w.String(), "test: this is a test\ntest2: this is another test\n")

	w.Reset()
	log.Tail(w, 100)
	expectEquality(t, w.String(), "test: this is a test\ntest2: this is another test\n")

	w.Reset()
	log.Tail(w, 2)
	expectEquality(t, w.String(), "test: this is a test\ntest2: this is another test\n")

	w.Reset()
	log.Tail(w, 1)
	expectEquality(t, w.String(), "test2: this is another test\n")

	w.Reset()
	log.Tail(w, 0)
	expectEquality(t, w.String(), "")
}

type prohibitLogging struct {
	allow bool
}

func (p prohibitLogging) AllowLogging() bool { return p.allow }

func TestPermissions(t *testing.T) {
	log := ringlog.NewLogger(100)
	w := &strings.Builder{}

	for _, allow := range []bool{true, false, true, false} {
		log.Clear()
		w.Reset()
		log.Log(prohibitLogging{allow: allow}, "tag", "detail")
		log.Write(w)
		if allow {
			expectEquality(t, w.String(), "tag: detail\n")
		} else {
			expectEquality(t, w.String(), "")
		}
	}
}

func TestErrorLogging(t *testing.T) {
	log := ringlog.NewLogger(100)
	w := &strings.Builder{}

	err := errors.New("test error")

	log.Log(ringlog.Allow, "tag", err)
	log.Write(w)
	expectEquality(t, w.String(), "tag: test error\n")

	log.Clear()
	w.Reset()

	log.Logf(ringlog.Allow, "tag", "wrapped: %v", err)
	log.Write(w)
	expectEquality(t, w.String(), "tag: wrapped: test error\n")
}

type stringerTest struct{}

func (stringerTest) String() string { return "stringer test" }

func TestStringerLogging(t *testing.T) {
	log := ringlog.NewLogger(100)
	w := &strings.Builder{}

	log.Log(ringlog.Allow, "tag", stringerTest{})
	log.Write(w)
	expectEquality(t, w.String(), "tag: stringer test\n")
}

func TestRingOverwrite(t *testing.T) {
	log := ringlog.NewLogger(3)
	w := &strings.Builder{}

	for i := 0; i < 5; i++ {
		log.Logf(ringlog.Allow, "tag", "entry %d", i)
	}
	log.Write(w)
	expectEquality(t, w.String(), "tag: entry 2\ntag: entry 3\ntag: entry 4\n")
}

func expectEquality(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
