package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tmplbuild/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild whenever a template changes",
	Long: `Build once, then watch every package directory and rebuild after each
burst of template changes. Bursts are collapsed using watch.debounce.
Press Ctrl+C to stop.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := newBuildEnv(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := env.rebuild(ctx); err != nil {
		// keep watching, the next change may fix it
		env.logger.Error(ctx, err, "initial build failed")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d package(s) for %s changes\n",
		len(env.cfg.Packages), env.cfg.Templates.Extension)

	if err := watcher.Watch(ctx, env.cfg, env.rebuild, env.logger); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
