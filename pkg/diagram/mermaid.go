package diagram

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/diagshot/pkg/cache"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/raster"
)

// DefaultTheme is the Mermaid theme used when none is configured.
const DefaultTheme = "default"

// bundlePaths are the bundle locations below a search root, in order.
var bundlePaths = []string{
	filepath.Join("node_modules", "mermaid", "dist", "mermaid.min.js"),
	filepath.Join("node_modules", "@mermaid-js", "mermaid-cli", "node_modules", "mermaid", "dist", "mermaid.min.js"),
}

// DefaultRoots returns the working directory and the directory of the
// running executable.
func DefaultRoots() []string {
	var roots []string
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		roots = append(roots, filepath.Dir(exe))
	}
	return roots
}

// FindBundle locates the Mermaid browser bundle. An explicit path must exist;
// otherwise each root is searched for the npm install locations of mermaid
// and of @mermaid-js/mermaid-cli.
func FindBundle(explicit string, roots ...string) (string, error) {
	if explicit != "" {
		if isFile(explicit) {
			return explicit, nil
		}
		return "", errors.New(errors.ErrCodeBundleNotFound, "mermaid bundle not found at %s", explicit)
	}
	for _, root := range roots {
		for _, rel := range bundlePaths {
			p := filepath.Join(root, rel)
			if isFile(p) {
				return p, nil
			}
		}
	}
	return "", errors.New(errors.ErrCodeBundleNotFound,
		"mermaid library bundle not found; install mermaid with npm or set mermaid.bundle")
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// Mermaid renders Mermaid markup with a browser bundle.
type Mermaid struct {
	bundle string
	digest string
	source string
	theme  string
}

// NewMermaid reads the bundle at path.
func NewMermaid(path, theme string) (*Mermaid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBundleNotFound, err, "read mermaid bundle")
	}
	if theme == "" {
		theme = DefaultTheme
	}
	return &Mermaid{bundle: path, digest: cache.Hash(data), source: string(data), theme: theme}, nil
}

// Bundle returns the path the bundle was read from.
func (m *Mermaid) Bundle() string { return m.bundle }

// Digest returns the content hash of the bundle.
func (m *Mermaid) Digest() string { return m.digest }

// Theme returns the configured theme.
func (m *Mermaid) Theme() string { return m.theme }

// Render draws code in tab and returns the SVG markup. The page background
// is background, which may be "transparent".
func (m *Mermaid) Render(tab raster.Runner, code, background string) ([]byte, error) {
	if background != raster.Transparent {
		if err := errors.ValidateBackground(background); err != nil {
			return nil, err
		}
	}
	script, err := renderScript(code, m.theme)
	if err != nil {
		return nil, err
	}

	var svg string
	err = tab.Run(
		raster.SetContent(mermaidPage(background)),
		// The trailing expression keeps the completion value serialisable.
		chromedp.Evaluate(m.source+"\n;void 0", nil),
		chromedp.Evaluate(script, &svg, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render mermaid diagram")
	}
	if strings.TrimSpace(svg) == "" {
		return nil, errors.New(errors.ErrCodeRender, "mermaid returned an empty diagram")
	}
	return []byte(svg), nil
}

func mermaidPage(background string) string {
	return `<!DOCTYPE html>
<html><head><style>body { background: ` + background + `; margin: 0; }</style></head>
<body><div id="mermaid-container"></div></body></html>`
}

func renderScript(code, theme string) (string, error) {
	codeJSON, err := json.Marshal(code)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode diagram source")
	}
	config, err := json.Marshal(map[string]any{
		"startOnLoad":   false,
		"theme":         theme,
		"securityLevel": "loose",
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode mermaid config")
	}
	return `(async () => {
	mermaid.initialize(` + string(config) + `);
	const { svg } = await mermaid.render('mermaid-diagram', ` + string(codeJSON) + `);
	return svg;
})()`, nil
}
