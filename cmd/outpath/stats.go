package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatsCmd(conf *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report the tesselated buffers of every layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layers, err := setup(cmd.Context(), conf)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "LAYER\tKIND\tPATHS\tSKIPPED\tINSTANCES\tPADDED\tBOUNDS")
			for _, l := range layers {
				st := l.Tesselator().Stats()
				bounds := "-"
				if lo, hi, ok := l.Bounds(); ok {
					bounds = fmt.Sprintf("[%.6g %.6g]..[%.6g %.6g]", lo[0], lo[1], hi[0], hi[1])
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					l.ID(), l.Kind(), st.Paths, st.SkippedPaths, st.Instances, st.PaddedVertices, bounds)
			}
			return w.Flush()
		},
	}
}
