package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newSweepCmd runs the cleanup tasks once, for deployments that prefer cron to the in-process
// sweeper.
func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete stale lockout records and expired sessions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := openRuntime(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer rt.Close()

			counts := rt.engine.Sweep(ctx)
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d deleted\n", name, counts[name])
			}
			return nil
		},
	}
}
