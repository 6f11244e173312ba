package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"haak-weather/internal/modules/weather/chart"
)

func newRenderCommand(app *viewer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write one PNG chart per metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			paths, err := chart.RenderAll(app.v.GetString("out"), payload, app.registry, chart.Options{
				Width:  app.v.GetInt("width"),
				Height: app.v.GetInt("height"),
			})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			app.logger.Info("charts written", "count", len(paths))
			return nil
		},
	}
	addWindowFlags(cmd)
	cmd.Flags().String("out", "charts", "Output directory")
	cmd.Flags().Int("width", 1280, "Chart width in pixels")
	cmd.Flags().Int("height", 720, "Chart height in pixels")
	return cmd
}
