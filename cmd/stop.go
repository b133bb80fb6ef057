package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/process"
)

var stopForce bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the chat service",
	Long: `Stop the background EcoSwitch server.

Refuses while "ask" invocations still hold a reference, unless --force is given.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "stop even while clients hold references")
}

func runStop(_ *cobra.Command, _ []string) error {
	procs := process.NewManager(baseDir, logger)

	pid := procs.ReadPID()
	if pid == 0 || !procs.IsRunning() {
		color.Yellow("%s is not running", AppName)
		procs.CleanupRef()
		return nil
	}

	if refs := procs.ReadRef(); refs > 0 && !stopForce {
		return fmt.Errorf("%d client(s) still using the service; retry with --force", refs)
	}

	if err := procs.Stop(); err != nil {
		return fmt.Errorf("stop %s: %w", AppName, err)
	}
	procs.CleanupRef()

	logger.Debug("Service stopped", "pid", pid)
	color.Green("Stopped %s (pid %d)", AppName, pid)
	return nil
}
