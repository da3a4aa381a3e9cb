package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/memwatch/internal/app/version"
)

// versionCmd 版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	RunE: func(_ *cobra.Command, _ []string) error {
		if globalFlags.JSON {
			return printJSON(version.GetBuildInfo())
		}
		fmt.Println(version.GetFullVersion())
		return nil
	},
}
