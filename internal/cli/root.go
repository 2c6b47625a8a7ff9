package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/wp-secmeta/internal/buildinfo"
	"github.com/example/wp-secmeta/internal/config"
)

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "wp-secmeta",
		Short:         "Check WordPress plugins and themes for consistent security contact metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildinfo.Version,
	}
	rootCmd.SetVersionTemplate("wp-secmeta {{.Version}} (" + buildinfo.Info() + ")\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to secmeta.config.yml (optional)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
	}

	rootCmd.AddCommand(
		newCheckCmd(),
		newInitCmd(loader),
		newScanCmd(loader),
		newReportCmd(loader),
		newDoctorCmd(loader),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
}
