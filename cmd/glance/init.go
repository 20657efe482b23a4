package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/glance"
)

var (
	initFormat string
	initForce  bool
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default glance config file",
	Long: `Write glance.yaml (or glance.toml with --format toml) in the current
directory, filled with the default settings.`,
	Run: func(cmd *cobra.Command, args []string) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}

		var name string
		switch initFormat {
		case "yaml":
			name = "glance.yaml"
		case "toml":
			name = "glance.toml"
		default:
			fatal("Invalid format", fmt.Errorf("%q (expected yaml or toml)", initFormat))
		}
		path := filepath.Join(cwd, name)

		if _, err := os.Stat(path); err == nil && !initForce {
			fatal("Refusing to overwrite", fmt.Errorf("%s exists (use --force)", path))
		}

		data, err := glance.DefaultConfig().Marshal(path)
		if err != nil {
			fatal("Failed to encode config", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			fatal("Failed to write config", err)
		}

		fmt.Println("Wrote default config to", path)
	},
}

func init() {
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "Config format (yaml or toml)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
