package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/weisyn/memwatch/internal/core/infrastructure/system"
	"github.com/weisyn/memwatch/internal/core/telemetry"
)

// pressureCmd 当前系统压力
var pressureCmd = &cobra.Command{
	Use:   "pressure",
	Short: "显示当前系统内存压力",
	RunE: func(_ *cobra.Command, _ []string) error {
		info := system.NewInfo()
		snap := telemetry.ComputePressure(time.Now(), info.TotalMemory(), info.FreeMemory())
		if globalFlags.JSON {
			return printJSON(snap)
		}
		return renderPressure(snap)
	},
}
