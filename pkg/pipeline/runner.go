package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diagshot/pkg/browser"
	"github.com/matzehuels/diagshot/pkg/cache"
	"github.com/matzehuels/diagshot/pkg/diagram"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/observability"
	"github.com/matzehuels/diagshot/pkg/raster"
)

// Browsers hands out browser handles. *browser.Client implements it.
type Browsers interface {
	Acquire(ctx context.Context) (*browser.Handle, error)
}

// Runner executes jobs with caching.
//
// The Runner holds no per-job state. Multiple goroutines can use the same
// Runner with different jobs.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Browsers Browsers
	Logger   *log.Logger

	// Mermaid renders Mermaid jobs. Nil means no bundle is available.
	Mermaid *diagram.Mermaid

	// Timeout bounds a whole job. Zero means no limit.
	Timeout time.Duration

	// TTL overrides the per-artifact cache expiry when positive.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// means cache.DefaultKeyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, browsers Browsers, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Browsers: browsers,
		Logger:   logger,
	}
}

// Result is the outcome of a job.
type Result struct {
	Data     []byte
	Format   string
	CacheHit bool

	// Size is set when the job rasterized. It is zero on a cache hit.
	Size raster.Resolution

	// Browser is the mode of the browser used, zero when none was needed.
	Browser  browser.Mode
	Duration time.Duration
}

// Execute runs job. Output is returned only for a complete render.
func (r *Runner) Execute(ctx context.Context, job Job) (res *Result, err error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	kind := string(job.Kind)
	observability.Render().OnRenderStart(ctx, kind)
	defer func() {
		observability.Render().OnRenderComplete(ctx, kind, time.Since(start), err)
	}()

	logger := r.Logger.With("job", job.ID)
	sess := &session{browsers: r.Browsers, logger: logger}
	defer sess.release()

	res = &Result{Format: job.Format}
	switch job.Kind {
	case diagram.KindSVG:
		res.Data, res.CacheHit, err = r.rasterize(ctx, sess, job, job.Input, res)
	default:
		res.Data, res.CacheHit, err = r.renderDiagram(ctx, sess, job, res)
	}
	if err != nil {
		return nil, err
	}

	res.Browser = sess.mode()
	res.Duration = time.Since(start)
	logger.Info("rendered",
		"kind", kind,
		"format", job.Format,
		"bytes", len(res.Data),
		"cached", res.CacheHit,
		"duration", res.Duration)
	return res, nil
}

// renderDiagram produces the SVG of a diagram and, for PNG jobs, rasterizes
// it. Each stage is cached separately.
func (r *Runner) renderDiagram(ctx context.Context, sess *session, job Job, res *Result) ([]byte, bool, error) {
	keyOpts := cache.DiagramKeyOpts{Kind: string(job.Kind), Background: job.Background}
	if job.Kind == diagram.KindMermaid {
		if r.Mermaid == nil {
			return nil, false, errors.New(errors.ErrCodeBundleNotFound, "mermaid library bundle not found")
		}
		keyOpts.Theme = r.Mermaid.Theme()
		keyOpts.Bundle = r.Mermaid.Digest()
	}
	key := r.Keyer.DiagramKey(cache.Hash(job.Input), keyOpts)

	svg, hit := r.lookup(ctx, key, "diagram")
	if !hit {
		var err error
		svg, err = r.drawDiagram(ctx, sess, job)
		if err != nil {
			return nil, false, err
		}
		r.store(ctx, key, "diagram", svg, r.ttl(cache.TTLDiagram))
	}

	if job.Format == FormatSVG {
		return svg, hit, nil
	}
	png, pngHit, err := r.rasterize(ctx, sess, job, svg, res)
	return png, hit && pngHit, err
}

func (r *Runner) drawDiagram(ctx context.Context, sess *session, job Job) ([]byte, error) {
	switch job.Kind {
	case diagram.KindDOT:
		return diagram.RenderDOT(ctx, job.Input)
	case diagram.KindMermaid:
		page, err := sess.page(ctx)
		if err != nil {
			return nil, err
		}
		defer page.Close()
		return r.Mermaid.Render(page, string(job.Input), job.Background)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unsupported input kind %q", job.Kind)
}

// rasterize converts svg to PNG, consulting the cache before the browser.
func (r *Runner) rasterize(ctx context.Context, sess *session, job Job, svg []byte, res *Result) ([]byte, bool, error) {
	key := r.Keyer.RasterKey(cache.Hash(svg), job.RasterKeyOpts())
	if png, hit := r.lookup(ctx, key, "raster"); hit {
		return png, true, nil
	}

	page, err := sess.page(ctx)
	if err != nil {
		return nil, false, err
	}
	defer page.Close()

	png, size, err := raster.Rasterize(page, svg, job.RasterOptions())
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeRender, err, "rasterize")
		}
		return nil, false, err
	}
	res.Size = size
	sess.logger.Debug("resolved size",
		"width", size.Width,
		"height", size.Height,
		"source", size.Source,
		"scale", raster.DeviceScaleFactor(job.DPIX, job.DPIY))

	r.store(ctx, key, "raster", png, r.ttl(cache.TTLRaster))
	return png, false, nil
}

func (r *Runner) lookup(ctx context.Context, key, keyType string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	var errs []error
	if r.Cache != nil {
		errs = append(errs, r.Cache.Close())
	}
	if c, ok := r.Browsers.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return stderrors.Join(errs...)
}

// session acquires a browser on first use and releases it at the end of a job.
type session struct {
	browsers Browsers
	logger   *log.Logger
	handle   *browser.Handle
}

func (s *session) page(ctx context.Context) (*browser.Page, error) {
	if s.handle == nil {
		if s.browsers == nil {
			return nil, errors.New(errors.ErrCodeInternal, "no browser configured")
		}
		h, err := s.browsers.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		s.handle = h
		s.logger.Debug("acquired browser", "mode", h.Mode(), "endpoint", h.Endpoint())
	}
	page, err := s.handle.NewPage(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "open tab")
	}
	return page, nil
}

func (s *session) mode() browser.Mode {
	if s.handle == nil {
		return 0
	}
	return s.handle.Mode()
}

func (s *session) release() {
	if s.handle != nil {
		s.handle.Release()
	}
}
