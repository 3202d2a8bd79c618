package browser

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagshot/pkg/endpoint"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/observability"
)

type recordingHooks struct {
	observability.NoopBrowserHooks
	skipped []error
}

func (h *recordingHooks) OnAttachSkipped(_ context.Context, reason error) {
	h.skipped = append(h.skipped, reason)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func TestTryAttachFallsBack(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		setup func(t *testing.T) endpoint.Store
	}{
		{
			name:  "no store",
			setup: func(t *testing.T) endpoint.Store { return nil },
		},
		{
			name: "missing record",
			setup: func(t *testing.T) endpoint.Store {
				s, _ := endpoint.NewFileStore(filepath.Join(dir, "missing"))
				return s
			},
		},
		{
			name: "empty record",
			setup: func(t *testing.T) endpoint.Store {
				path := filepath.Join(dir, "empty")
				if err := os.WriteFile(path, []byte(" \n"), 0644); err != nil {
					t.Fatal(err)
				}
				s, _ := endpoint.NewFileStore(path)
				return s
			},
		},
		{
			name: "unreadable record",
			setup: func(t *testing.T) endpoint.Store {
				path := filepath.Join(dir, "a-directory")
				if err := os.Mkdir(path, 0755); err != nil {
					t.Fatal(err)
				}
				s, _ := endpoint.NewFileStore(path)
				return s
			},
		},
		{
			name: "not a websocket address",
			setup: func(t *testing.T) endpoint.Store {
				path := filepath.Join(dir, "http")
				if err := os.WriteFile(path, []byte("http://127.0.0.1:9222"), 0644); err != nil {
					t.Fatal(err)
				}
				s, _ := endpoint.NewFileStore(path)
				return s
			},
		},
		{
			name: "stale address",
			setup: func(t *testing.T) endpoint.Store {
				path := filepath.Join(dir, "stale")
				addr := fmt.Sprintf("ws://127.0.0.1:%d/devtools/browser/gone", closedPort(t))
				if err := os.WriteFile(path, []byte(addr+"\n"), 0644); err != nil {
					t.Fatal(err)
				}
				s, _ := endpoint.NewFileStore(path)
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &recordingHooks{}
			observability.SetBrowserHooks(hooks)
			defer observability.Reset()

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			c := NewClient(tt.setup(t), Options{}, quietLogger())
			h, ok := c.TryAttach(ctx)
			if ok || h != nil {
				t.Fatalf("TryAttach() = %v, %v; want nil, false", h, ok)
			}
			if len(hooks.skipped) != 1 {
				t.Errorf("OnAttachSkipped called %d times, want 1", len(hooks.skipped))
			}
		})
	}
}

func TestAcquireLaunchesWhenAttachFails(t *testing.T) {
	c := NewClient(nil, Options{}, quietLogger())
	launched := 0
	c.launch = func(ctx context.Context) (*Handle, error) {
		launched++
		return newHandle(Owned, "", nil, nil, nil, nil), nil
	}

	h, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer h.Release()

	if launched != 1 {
		t.Errorf("launch called %d times, want 1", launched)
	}
	if h.Mode() != Owned {
		t.Errorf("Mode() = %v, want owned", h.Mode())
	}
	if h.Endpoint() != "" {
		t.Errorf("Endpoint() = %q, want empty", h.Endpoint())
	}
}

func TestAcquireReturnsLaunchError(t *testing.T) {
	c := NewClient(nil, Options{}, quietLogger())
	c.launch = func(ctx context.Context) (*Handle, error) {
		return nil, errors.New(errors.ErrCodeBrowserLaunch, "no chrome")
	}

	_, err := c.Acquire(context.Background())
	if !errors.Is(err, errors.ErrCodeBrowserLaunch) {
		t.Errorf("Acquire() error = %v, want BROWSER_LAUNCH", err)
	}
}

type closingStore struct {
	endpoint.Store
	closed int
}

func (s *closingStore) Close() error {
	s.closed++
	return nil
}

func TestClientClose(t *testing.T) {
	store := &closingStore{}
	c := NewClient(store, Options{}, quietLogger())
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.closed != 1 {
		t.Errorf("store closed %d times, want 1", store.closed)
	}

	if err := NewClient(nil, Options{}, quietLogger()).Close(); err != nil {
		t.Errorf("Close() without a store error = %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	h := newHandle(Shared, "ws://x", nil, nil, nil, nil)
	h.Release()
	h.Release()
}

func TestModeString(t *testing.T) {
	tests := map[Mode]string{Shared: "shared", Owned: "owned", Mode(0): "unknown"}
	for m, want := range tests {
		if got := m.String(); got != want {
			t.Errorf("Mode(%d).String() = %q, want %q", m, got, want)
		}
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantValue any
	}{
		{"disable-gpu", "disable-gpu", true},
		{"--disable-gpu", "disable-gpu", true},
		{"--window-size=800,600", "window-size", "800,600"},
		{"lang=de", "lang", "de"},
		{" --proxy-server=http://p:1 ", "proxy-server", "http://p:1"},
	}
	for _, tt := range tests {
		name, value := ParseFlag(tt.in)
		if name != tt.wantName || value != tt.wantValue {
			t.Errorf("ParseFlag(%q) = %q, %v; want %q, %v", tt.in, name, value, tt.wantName, tt.wantValue)
		}
	}
}
