package browser

import (
	"slices"
	"testing"

	"github.com/matzehuels/diagshot/pkg/errors"
)

func TestParseDevToolsLine(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{
			line:   "DevTools listening on ws://127.0.0.1:41235/devtools/browser/6b1c7e2a-4a9e",
			want:   "ws://127.0.0.1:41235/devtools/browser/6b1c7e2a-4a9e",
			wantOK: true,
		},
		{
			line:   "[0101/000000.000:INFO] DevTools listening on ws://[::1]:9222/devtools/browser/x  ",
			want:   "ws://[::1]:9222/devtools/browser/x",
			wantOK: true,
		},
		{line: "[0101/000000.000:ERROR:gpu_init.cc] Passthrough is not supported", wantOK: false},
		{line: "", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := ParseDevToolsLine(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseDevToolsLine(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFindExecPathExplicitMissing(t *testing.T) {
	_, err := FindExecPath("/nonexistent/diagshot/chrome")
	if !errors.Is(err, errors.ErrCodeBrowserLaunch) {
		t.Errorf("FindExecPath() error = %v, want BROWSER_LAUNCH", err)
	}
}

func TestLauncherArgs(t *testing.T) {
	l := &ProcessLauncher{Flags: []string{"--lang=de", "disable-web-security"}}
	args := l.args("/tmp/profile")

	for _, want := range []string{
		"--remote-debugging-port=0",
		"--no-sandbox",
		"--user-data-dir=/tmp/profile",
		"--lang=de",
		"--disable-web-security",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "about:blank" {
		t.Errorf("last arg = %q, want about:blank", args[len(args)-1])
	}
}
