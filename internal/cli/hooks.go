package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// logHooks reports render, browser and cache events at debug level.
type logHooks struct {
	logger *log.Logger
}

func (h *logHooks) OnRenderStart(_ context.Context, kind string) {
	h.logger.Debug("render started", "kind", kind)
}

func (h *logHooks) OnRenderComplete(_ context.Context, kind string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "kind", kind, "duration", d, "error", err)
		return
	}
	h.logger.Debug("render finished", "kind", kind, "duration", d)
}

func (h *logHooks) OnAttach(_ context.Context, endpoint string) {
	h.logger.Debug("using shared browser", "endpoint", endpoint)
}

func (h *logHooks) OnAttachSkipped(_ context.Context, reason error) {
	h.logger.Debug("shared browser unavailable", "reason", reason)
}

func (h *logHooks) OnLaunch(_ context.Context, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("browser launch failed", "duration", d, "error", err)
		return
	}
	h.logger.Debug("browser launched", "duration", d)
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache store", "type", keyType, "bytes", size)
}
