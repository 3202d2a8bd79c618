package cli

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagshot/pkg/diagram"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/pipeline"
)

const diagramUsage = "usage: diagshot diagram -i <input> -o <output> [-b transparent]"

// diagramCommand creates the diagram command, a drop-in for mmdc.
func (c *CLI) diagramCommand() *cobra.Command {
	var input, output, background string

	cmd := &cobra.Command{
		Use:     "diagram",
		Aliases: []string{"mmdc"},
		Short:   "Render a Mermaid or Graphviz diagram",
		Long: `Render a Mermaid or Graphviz diagram to SVG, or to PNG when the output ends in .png.

Inputs ending in .dot or .gv are rendered with Graphviz. Inputs ending in .svg
are copied to an .svg output or rasterized to a .png output. Everything else is
Mermaid markup rendered by the Mermaid bundle in the shared browser.

Exit status: 0 success, 1 missing flag, 2 Mermaid bundle not found, 3 any other failure.`,
		Example: `  diagshot diagram -i flow.mmd -o flow.svg
  diagshot diagram -i deps.dot -o deps.png -b transparent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return diagramExit(c.runDiagram(cmd, input, output, background))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "diagram source file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .svg or .png (required)")
	cmd.Flags().StringVarP(&background, "background", "b", pipeline.DefaultDiagramBackground, "page background colour or \"transparent\"")

	return cmd
}

func (c *CLI) runDiagram(cmd *cobra.Command, input, output, background string) error {
	if input == "" || output == "" {
		return errors.New(errors.ErrCodeMissingFlag, diagramUsage)
	}
	if err := errors.ValidatePath(output); err != nil {
		return err
	}

	source, err := c.readInput(input)
	if err != nil {
		return err
	}

	job := pipeline.NewJob(diagram.KindFromPath(input), source)
	job.Format = outputFormat(output)
	if job.Kind == diagram.KindSVG && job.Format == pipeline.FormatSVG {
		return c.copySVG(input, output, source)
	}
	job.Background = background
	job.DPIX, job.DPIY = c.cfg.Render.DPIX, c.cfg.Render.DPIY
	if err := job.Validate(); err != nil {
		return err
	}

	runner := c.newRunner(cmd.Context())
	defer runner.Close()

	if job.Kind == diagram.KindMermaid {
		bundle, err := diagram.FindBundle(c.cfg.Mermaid.Bundle, diagram.DefaultRoots()...)
		if err != nil {
			return err
		}
		m, err := diagram.NewMermaid(bundle, c.cfg.Mermaid.Theme)
		if err != nil {
			return err
		}
		c.Logger.Debug("mermaid bundle", "path", bundle, "theme", m.Theme())
		runner.Mermaid = m
	}

	prog := newProgress(c.Logger)
	res, err := runner.Execute(cmd.Context(), job)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(output, res.Data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", output)
	}

	c.printSuccess("Rendered %s diagram %s", job.Kind, filepath.Base(input))
	c.printRenderStats(res.Size.Width, res.Size.Height, res.CacheHit)
	c.printFile(output)
	c.Logger.Debug("diagram written", "job", job.ID, "output", output, "duration", prog.elapsed())
	return nil
}

// copySVG writes SVG input unchanged to an SVG output.
func (c *CLI) copySVG(input, output string, source []byte) error {
	if len(bytes.TrimSpace(source)) == 0 {
		return errors.New(errors.ErrCodeEmptyInput, "no input data")
	}
	if err := writeFileAtomic(output, source); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", output)
	}
	c.printSuccess("Copied %s", filepath.Base(input))
	c.printFile(output)
	return nil
}

// outputFormat picks PNG for .png outputs and SVG for everything else.
func outputFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return pipeline.FormatPNG
	}
	return pipeline.FormatSVG
}
