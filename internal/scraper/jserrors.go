package scraper

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const maxScriptErrors = 20

// scriptErrors records distinct uncaught exceptions and console.error calls
// raised by one page since the last reset. A scrape that degrades logs them
// next to the failure.
type scriptErrors struct {
	mu   sync.Mutex
	seen map[string]bool
	list []string
}

func listenScriptErrors(ctx context.Context) *scriptErrors {
	c := &scriptErrors{seen: make(map[string]bool)}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			c.add("exception: " + exceptionText(e.ExceptionDetails))
		case *runtime.EventConsoleAPICalled:
			if e.Type == runtime.APITypeError {
				if text := consoleText(e.Args); text != "" {
					c.add("console.error: " + text)
				}
			}
		}
	})
	return c
}

func exceptionText(d *runtime.ExceptionDetails) string {
	if d == nil {
		return ""
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return firstLine(d.Exception.Description)
	}
	return firstLine(d.Text)
}

func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg.Value != nil:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		}
	}
	return firstLine(strings.Join(parts, " "))
}

// add ignores duplicates, missing favicons and anything past the cap.
func (c *scriptErrors) add(msg string) {
	if strings.Contains(msg, "favicon") {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[msg] || len(c.list) >= maxScriptErrors {
		return
	}
	c.seen[msg] = true
	c.list = append(c.list, msg)
}

func (c *scriptErrors) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.list...)
}

func (c *scriptErrors) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[string]bool)
	c.list = nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
