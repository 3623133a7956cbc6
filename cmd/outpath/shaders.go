package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/outpath/layer"
)

func newShadersCmd(conf *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shaders",
		Short: "Print or compile the WGSL of the requested layer kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			props := layer.DefaultProps()
			out := cmd.OutOrStdout()
			for _, kind := range conf.GetStringSlice("layers") {
				l, err := newLayer(kind, nil, props, style{})
				if err != nil {
					return err
				}
				if !conf.GetBool("compile") {
					fmt.Fprintf(out, "// %s\n%s\n", l.Kind(), l.ShaderSource())
					continue
				}
				for _, b := range l.UniformBlocks() {
					if _, err := b.Compile(); err != nil {
						return err
					}
				}
				spirv, err := l.CompileShader()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d bytes of SPIR-V\n", l.Kind(), len(spirv))
			}
			return nil
		},
	}
	cmd.Flags().Bool("compile", false, "Compile with naga instead of printing the source.")
	_ = conf.BindPFlags(cmd.Flags())
	return cmd
}
