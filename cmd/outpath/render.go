package main

import (
	"fmt"
	"image/color"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/outpath"
	"github.com/gogpu/outpath/internal/colorparse"
	"github.com/gogpu/outpath/internal/preview"
)

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = 111_320

func newRenderCmd(conf *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the layers to a PNG preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layers, err := setup(cmd.Context(), conf)
			if err != nil {
				return err
			}
			bg, err := colorparse.Parse(conf.GetString("background"))
			if err != nil {
				return fmt.Errorf("background: %w", err)
			}
			r := preview.New(
				preview.WithSize(conf.GetInt("width"), conf.GetInt("height")),
				preview.WithBackground(color.NRGBA{R: bg[0], G: bg[1], B: bg[2], A: bg[3]}),
				preview.WithUnitsPerMeter(conf.GetFloat64("units-per-meter")),
			)

			var lo, hi [3]float64
			fitted := false
			for _, l := range layers {
				a, b, ok := l.Bounds()
				if !ok {
					continue
				}
				if !fitted {
					lo, hi, fitted = a, b, true
					continue
				}
				for c := range 3 {
					lo[c], hi[c] = min(lo[c], a[c]), max(hi[c], b[c])
				}
			}
			if !fitted {
				return fmt.Errorf("no drawable trips")
			}
			r.Fit(lo, hi)

			for _, l := range layers {
				if err := l.Draw(cmd.Context(), r); err != nil {
					return err
				}
			}

			out := conf.GetString("output")
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			if err := r.WritePNG(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing output: %w", err)
			}
			outpath.Logger().Info("render: wrote preview", "file", out, "layers", r.Calls())
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d layers)\n", out, r.Calls())
			return nil
		},
	}

	flag := cmd.Flags()
	flag.Int("width", 800, "Image width in pixels.")
	flag.Int("height", 600, "Image height in pixels.")
	flag.String("output", "outpath.png", "Output PNG file.")
	flag.String("background", "white", "Background color.")
	flag.Float64("units-per-meter", 1.0/metersPerDegree, "World units per meter, for widths in meters.")
	_ = conf.BindPFlags(flag)
	return cmd
}
