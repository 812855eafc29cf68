package scraper

import (
	"fmt"
	"testing"

	"github.com/chromedp/cdproto/runtime"
)

func TestScriptErrors_DedupAndCap(t *testing.T) {
	c := &scriptErrors{seen: make(map[string]bool)}
	c.add("exception: TypeError: x is undefined")
	c.add("exception: TypeError: x is undefined")
	c.add("console.error: GET /favicon.ico 404")

	if got := c.snapshot(); len(got) != 1 {
		t.Fatalf("expected 1 distinct error, got %v", got)
	}

	for i := 0; i < maxScriptErrors+5; i++ {
		c.add(fmt.Sprintf("exception: %d", i))
	}
	if got := len(c.snapshot()); got != maxScriptErrors {
		t.Errorf("expected cap of %d, got %d", maxScriptErrors, got)
	}

	c.reset()
	if got := c.snapshot(); len(got) != 0 {
		t.Errorf("expected empty after reset, got %v", got)
	}
	c.add("exception: TypeError: x is undefined")
	if got := c.snapshot(); len(got) != 1 {
		t.Errorf("expected message accepted again after reset, got %v", got)
	}
}

func TestExceptionText(t *testing.T) {
	d := &runtime.ExceptionDetails{
		Text:      "Uncaught",
		Exception: &runtime.RemoteObject{Description: "ReferenceError: foo is not defined\n    at <anonymous>:1:1"},
	}
	if got := exceptionText(d); got != "ReferenceError: foo is not defined" {
		t.Errorf("unexpected text %q", got)
	}
	if got := exceptionText(&runtime.ExceptionDetails{Text: "Uncaught"}); got != "Uncaught" {
		t.Errorf("expected fallback to Text, got %q", got)
	}
	if got := exceptionText(nil); got != "" {
		t.Errorf("expected empty for nil details, got %q", got)
	}
}

func TestConsoleText(t *testing.T) {
	args := []*runtime.RemoteObject{
		{Value: []byte(`"failed to load"`)},
		{Description: "Error: 500"},
		{},
	}
	if got := consoleText(args); got != "failed to load Error: 500" {
		t.Errorf("unexpected console text %q", got)
	}
}
