// schedctl 排课运维命令行：迁移、离线提交班组课表、查看课表、拆解人员编号。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "schedctl",
		Short:         "Smart Campus timetable maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SMARTCAMPUS_CONFIG"), "Path to config file (default: ./config/config.yaml)")

	root.AddCommand(
		newMigrateCmd(&configPath),
		newReconcileCmd(&configPath),
		newShowCmd(&configPath),
		newDecodeIDCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
