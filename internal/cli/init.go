package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wp-secmeta/internal/config"
	"github.com/example/wp-secmeta/internal/detector"
	"github.com/example/wp-secmeta/internal/events"
	"github.com/example/wp-secmeta/internal/store"
)

func newInitCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Validate the execution environment and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if _, err := detector.DefaultRegistry.BuildDetectors(cfg.Detectors); err != nil {
				return err
			}

			if err := ensureOutputDir(cfg.OutputDir); err != nil {
				return err
			}

			if cfg.RedisURL != "" {
				st, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisTTL)
				if err != nil {
					return err
				}
				st.Close()
			}

			if cfg.NATSURL != "" {
				conn, err := events.ConnectNATS(cfg.NATSURL)
				if err != nil {
					return fmt.Errorf("connect nats: %w", err)
				}
				conn.Close()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment looks good. Output will be stored in %s\n", cfg.OutputDir)
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}
