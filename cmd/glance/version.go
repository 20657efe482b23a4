package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/glance"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of glance",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("glance version %s\n", strings.TrimSpace(glance.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
