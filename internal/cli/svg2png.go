package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagshot/pkg/diagram"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/pipeline"
	"github.com/matzehuels/diagshot/pkg/raster"
)

// svg2pngOptions holds the flags of the svg2png command.
type svg2pngOptions struct {
	format     string
	dpiX       string
	dpiY       string
	keepAspect bool
	background string
	output     string
}

// svg2pngCommand creates the svg2png command: SVG on stdin, PNG on stdout.
func (c *CLI) svg2pngCommand() *cobra.Command {
	var opts svg2pngOptions

	cmd := &cobra.Command{
		Use:   "svg2png [file]",
		Short: "Rasterize an SVG document to PNG",
		Long: `Rasterize an SVG document to PNG in a headless browser.

The SVG is read from stdin (or file) and the PNG written to stdout (or --output).
The flags follow rsvg-convert so that pandoc can use this command in its place.

Exit status: 0 success, 1 unsupported format or bad flag, 2 empty or unusable
input, 3 any other failure. Nothing is written to stdout on failure.`,
		Example: `  diagshot svg2png < chart.svg > chart.png
  diagshot svg2png --dpi-x 150 --dpi-y 150 -b white chart.svg -o chart.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return svg2pngExit(c.runSVG2PNG(cmd, input, opts))
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", errors.FormatPNG, "output format (png only)")
	cmd.Flags().StringVarP(&opts.dpiX, "dpi-x", "d", "", "horizontal resolution (default from config, 96)")
	cmd.Flags().StringVarP(&opts.dpiY, "dpi-y", "p", "", "vertical resolution (default from config, 96)")
	cmd.Flags().BoolVarP(&opts.keepAspect, "keep-aspect-ratio", "a", false, "accepted for compatibility; the aspect ratio is always kept")
	cmd.Flags().StringVarP(&opts.background, "background-color", "b", pipeline.DefaultRasterBackground, "background colour or \"transparent\"")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the PNG to a file instead of stdout")

	return cmd
}

func (c *CLI) runSVG2PNG(cmd *cobra.Command, input string, opts svg2pngOptions) error {
	if err := errors.ValidateFormat(opts.format); err != nil {
		return err
	}

	svg, err := c.readInput(input)
	if err != nil {
		return err
	}

	job := pipeline.NewJob(diagram.KindSVG, svg)
	job.Background = opts.background
	job.DPIX = c.dpi(cmd, "dpi-x", opts.dpiX, c.cfg.Render.DPIX)
	job.DPIY = c.dpi(cmd, "dpi-y", opts.dpiY, c.cfg.Render.DPIY)
	if err := job.Validate(); err != nil {
		return err
	}

	runner := c.newRunner(cmd.Context())
	defer runner.Close()

	res, err := runner.Execute(cmd.Context(), job)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := writeFileAtomic(opts.output, res.Data); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", opts.output)
		}
		c.printSuccess("Rasterized %s", displayName(input))
		c.printRenderStats(res.Size.Width, res.Size.Height, res.CacheHit)
		c.printFile(opts.output)
		return nil
	}
	if _, err := c.Stdout.Write(res.Data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write PNG")
	}
	c.Logger.Debug("rasterized", "job", job.ID, "width", res.Size.Width, "height", res.Size.Height, "cached", res.CacheHit)
	return nil
}

// dpi returns the flag value when it was given and the configured value
// otherwise. Unparsable, non-positive and non-finite values become 96.
func (c *CLI) dpi(cmd *cobra.Command, name, flag string, configured float64) float64 {
	if !cmd.Flags().Changed(name) {
		return raster.NormalizeDPI(configured)
	}
	return parseDPI(flag)
}

func parseDPI(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return raster.BaselineDPI
	}
	return raster.NormalizeDPI(v)
}

// readInput reads path, or stdin when path is "" or "-".
func (c *CLI) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(c.Stdin)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "read stdin")
		}
		return data, nil
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	return data, nil
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return fmt.Sprintf("%q", path)
}
