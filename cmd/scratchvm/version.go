package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanema/scratchvm/conf"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bundle format version this build reads and writes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("scratchvm " + conf.FullVersion())
	},
}
