package browser

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/diagshot/pkg/errors"
)

const (
	DefaultStartTimeout = 30 * time.Second
	DefaultCloseTimeout = 5 * time.Second
)

var devToolsRe = regexp.MustCompile(`DevTools listening on (wss?://\S+)`)

// ParseDevToolsLine extracts the browser websocket address Chrome prints on
// stderr once remote debugging is ready.
func ParseDevToolsLine(line string) (string, bool) {
	m := devToolsRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FindExecPath returns path if it names an executable, or the first Chrome
// or Chromium binary found on this system when path is empty.
func FindExecPath(path string) (string, error) {
	if path != "" {
		p, err := exec.LookPath(path)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeBrowserLaunch, err, "browser executable %s", path)
		}
		return p, nil
	}
	for _, candidate := range execCandidates() {
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", errors.New(errors.ErrCodeBrowserLaunch, "no Chrome or Chromium executable found; set browser.exec_path")
}

func execCandidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"chromium",
			"google-chrome",
		}
	case "windows":
		return []string{
			"chrome",
			"chrome.exe",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}
	return []string{
		"headless_shell",
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"google-chrome-beta",
		"/usr/bin/google-chrome",
	}
}

// ProcessLauncher runs a long-lived headless Chrome with remote debugging on
// a free port. Unlike Client.Launch, the process is not tied to a chromedp
// context, so its address can be published and outlive this connection.
type ProcessLauncher struct {
	ExecPath     string
	Flags        []string
	StartTimeout time.Duration
	CloseTimeout time.Duration
	Logger       *log.Logger
}

// Launch starts Chrome and returns once it reports its DevTools address.
func (l *ProcessLauncher) Launch(ctx context.Context) (*Process, error) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	path, err := FindExecPath(l.ExecPath)
	if err != nil {
		return nil, err
	}
	dataDir, err := os.MkdirTemp("", "diagshot-chrome-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrowserLaunch, err, "create profile directory")
	}

	r, w, err := os.Pipe()
	if err != nil {
		os.RemoveAll(dataDir)
		return nil, errors.Wrap(errors.ErrCodeBrowserLaunch, err, "create stderr pipe")
	}

	cmd := exec.Command(path, l.args(dataDir)...)
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		os.RemoveAll(dataDir)
		return nil, errors.Wrap(errors.ErrCodeBrowserLaunch, err, "start %s", path)
	}
	w.Close()

	p := &Process{
		cmd:          cmd,
		dataDir:      dataDir,
		done:         make(chan struct{}),
		closeTimeout: l.CloseTimeout,
		logger:       logger,
	}
	if p.closeTimeout <= 0 {
		p.closeTimeout = DefaultCloseTimeout
	}

	addrCh := make(chan string, 1)
	go scanStderr(r, addrCh, logger)
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	timeout := l.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case addr := <-addrCh:
		p.endpoint = addr
		logger.Debug("browser listening", "pid", cmd.Process.Pid, "endpoint", addr)
		return p, nil
	case <-p.done:
		p.cleanup()
		return nil, errors.Wrap(errors.ErrCodeBrowserLaunch, p.waitErr, "browser exited before reporting its address")
	case <-timer.C:
		p.kill()
		return nil, errors.New(errors.ErrCodeBrowserLaunch, "browser did not report its address within %s", timeout)
	case <-ctx.Done():
		p.kill()
		return nil, ctx.Err()
	}
}

func (l *ProcessLauncher) args(dataDir string) []string {
	args := []string{
		"--headless=new",
		"--no-sandbox",
		"--disable-gpu",
		"--hide-scrollbars",
		"--mute-audio",
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
		"--disable-extensions",
		"--disable-dev-shm-usage",
		"--remote-debugging-address=127.0.0.1",
		"--remote-debugging-port=0",
		"--user-data-dir=" + dataDir,
	}
	for _, f := range l.Flags {
		name, value := ParseFlag(f)
		if b, ok := value.(bool); ok && b {
			args = append(args, "--"+name)
			continue
		}
		args = append(args, "--"+name+"="+value.(string))
	}
	return append(args, "about:blank")
}

// scanStderr forwards the first DevTools address and drains the rest so
// Chrome never blocks on a full pipe.
func scanStderr(r io.ReadCloser, addrCh chan<- string, logger *log.Logger) {
	defer r.Close()
	sent := false
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !sent {
			if addr, ok := ParseDevToolsLine(line); ok {
				addrCh <- addr
				sent = true
				continue
			}
		}
		logger.Debug("chrome", "stderr", line)
	}
}

// Process is a browser started by ProcessLauncher.
type Process struct {
	cmd          *exec.Cmd
	endpoint     string
	dataDir      string
	closeTimeout time.Duration
	logger       *log.Logger

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

// Endpoint returns the DevTools websocket address.
func (p *Process) Endpoint() string { return p.endpoint }

// Done is closed when the process has exited for any reason.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Close asks the browser to shut down over CDP and kills it if it is still
// running after the close timeout. It is safe to call more than once.
func (p *Process) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		select {
		case <-p.done:
			p.cleanup()
			return
		default:
		}
		if err := p.requestClose(ctx); err != nil {
			p.logger.Debug("graceful browser close failed", "error", err)
		}
		timer := time.NewTimer(p.closeTimeout)
		defer timer.Stop()
		select {
		case <-p.done:
			p.cleanup()
		case <-timer.C:
			p.logger.Warn("browser did not exit, killing", "pid", p.cmd.Process.Pid)
			p.kill()
		}
	})
	return p.closeErr
}

func (p *Process) requestClose(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.closeTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, p.endpoint, chromedp.NoModifyURL)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx); err != nil {
		return err
	}
	c := chromedp.FromContext(browserCtx)
	return cdpbrowser.Close().Do(cdp.WithExecutor(browserCtx, c.Browser))
}

func (p *Process) kill() {
	if err := p.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		p.closeErr = err
	}
	<-p.done
	p.cleanup()
}

func (p *Process) cleanup() {
	if err := os.RemoveAll(p.dataDir); err != nil {
		p.logger.Debug("remove profile directory", "dir", p.dataDir, "error", err)
	}
}
