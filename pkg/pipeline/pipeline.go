// Package pipeline runs render jobs for diagshot.
//
// A job turns one input document into one output artifact:
//
//	svg     -> png   rasterize in a browser tab
//	mermaid -> svg   Mermaid bundle in a browser tab
//	mermaid -> png   both of the above in one browser
//	dot     -> svg   Graphviz, no browser
//	dot     -> png   Graphviz, then rasterize
//
// The [Runner] checks the artifact cache before acquiring a browser, and
// acquires at most one browser per job, lazily. Jobs that fail validation
// never start a browser.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, client, logger)
//	job := pipeline.NewJob(diagram.KindSVG, svg)
//	job.DPIX, job.DPIY = 150, 150
//	res, err := runner.Execute(ctx, job)
//	os.Stdout.Write(res.Data)
package pipeline

import (
	"bytes"

	"github.com/google/uuid"

	"github.com/matzehuels/diagshot/pkg/cache"
	"github.com/matzehuels/diagshot/pkg/diagram"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/raster"
)

// Output formats.
const (
	FormatPNG = errors.FormatPNG
	FormatSVG = "svg"
)

// Default backgrounds: rasterized SVG keeps its alpha channel, diagrams are
// drawn on white.
const (
	DefaultRasterBackground  = raster.Transparent
	DefaultDiagramBackground = "white"
)

// Job is a single conversion.
type Job struct {
	ID         string
	Kind       diagram.Kind
	Input      []byte
	Format     string
	Background string
	DPIX       float64
	DPIY       float64
}

// NewJob creates a job with a fresh ID and the defaults for kind: PNG at
// 96 DPI for SVG input, SVG on white for diagrams.
func NewJob(kind diagram.Kind, input []byte) Job {
	j := Job{
		ID:    uuid.NewString(),
		Kind:  kind,
		Input: input,
		DPIX:  raster.BaselineDPI,
		DPIY:  raster.BaselineDPI,
	}
	if kind == diagram.KindSVG {
		j.Format = FormatPNG
		j.Background = DefaultRasterBackground
	} else {
		j.Format = FormatSVG
		j.Background = DefaultDiagramBackground
	}
	return j
}

// Validate checks the job before any work is done. Configuration problems
// are reported before content problems.
func (j *Job) Validate() error {
	switch j.Kind {
	case diagram.KindSVG:
		if err := errors.ValidateFormat(j.Format); err != nil {
			return err
		}
	case diagram.KindMermaid, diagram.KindDOT:
		if j.Format != FormatSVG && j.Format != FormatPNG {
			return errors.New(errors.ErrCodeUnsupported, "unsupported output format %q (svg or png)", j.Format)
		}
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported input kind %q", j.Kind)
	}
	if j.Background != raster.Transparent {
		if err := errors.ValidateBackground(j.Background); err != nil {
			return err
		}
	}
	if len(bytes.TrimSpace(j.Input)) == 0 {
		return errors.New(errors.ErrCodeEmptyInput, "no input data")
	}
	return nil
}

// RasterOptions returns the capture options of the job.
func (j *Job) RasterOptions() raster.Options {
	return raster.Options{
		DPIX:       raster.NormalizeDPI(j.DPIX),
		DPIY:       raster.NormalizeDPI(j.DPIY),
		Background: j.Background,
	}
}

// RasterKeyOpts returns the cache key options of the PNG stage.
func (j *Job) RasterKeyOpts() cache.RasterKeyOpts {
	o := j.RasterOptions()
	return cache.RasterKeyOpts{DPIX: o.DPIX, DPIY: o.DPIY, Background: o.Background}
}
