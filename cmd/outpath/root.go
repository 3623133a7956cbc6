package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/outpath"
)

func newRootCmd() *cobra.Command {
	conf := viper.New()
	root := &cobra.Command{
		Use:   "outpath",
		Short: "Outlined path layers for trip data",
		Long: `
outpath reads trips (a JSON array of {UUID, dateStart, coords, color}),
builds one path layer per requested kind and either reports the tesselated
buffers, renders them to a PNG or prints the layer shaders.

Flags can also be set in a config file (--config) or through OUTPATH_*
environment variables, e.g. OUTPATH_LOG_LEVEL=debug.`,
		Version:       outpath.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfg := conf.GetString("config"); cfg != "" {
				conf.SetConfigFile(cfg)
				if err := conf.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
			}
			return setupLogging(conf.GetString("log-level"))
		},
	}

	flag := root.PersistentFlags()
	flag.String("config", "", "Configuration file (yaml, toml or json). Flags and environment override it.")
	flag.String("log-level", "warn", "Log level: debug, info, warn or error.")
	flag.String("trips", "", "Trips JSON file.")
	flag.String("props", "", "Layer props file (.yaml, .yml or .toml).")
	flag.StringSlice("layers", []string{kindOutPath}, "Layer kinds to build: outpath, outlined, outline.")
	flag.Float64("stroke-width", 6, "Stroke width of every trip, in the props width units.")
	flag.Float64("outline-width", 2, "Outline width of every trip, in the props outline units.")
	flag.String("outline-color", "black", "Outline color: name, #rrggbb or rgb(r, g, b).")
	_ = conf.BindPFlags(flag)

	conf.SetEnvPrefix("OUTPATH")
	conf.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	conf.AutomaticEnv()

	root.AddCommand(newStatsCmd(conf), newRenderCmd(conf), newShadersCmd(conf))
	return root
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	outpath.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}
