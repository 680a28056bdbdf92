package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", &buf)

	Info.Printf("priced %s", "AAPL")
	Debug.Printf("tree built")
	Warn.Printf("slow call")
	Error.Printf("instability")
	Always.Printf("startup")

	out := buf.String()
	for _, want := range []string{"WARN: ", "slow call", "ERROR: ", "instability", "ALWAYS: ", "startup"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"priced AAPL", "tree built"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("%q should be filtered at warn level", unwanted)
		}
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("chatty", &buf)

	Info.Printf("visible")
	Debug.Printf("hidden")

	if !strings.Contains(buf.String(), "visible") || strings.Contains(buf.String(), "hidden") {
		t.Errorf("unknown level should behave like info:\n%s", buf.String())
	}
}

func TestInitWithConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.log")
	if err := InitWithConfig("debug", path); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}
	if Level() != "debug" {
		t.Errorf("Level() = %q, want debug", Level())
	}

	if err := InitWithConfig("info", filepath.Join(t.TempDir(), "missing", "dir", "x.log")); err == nil {
		t.Error("expected an error for an unwritable log path")
	}
}
