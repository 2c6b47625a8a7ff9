package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wp-secmeta/internal/security"
)

var errCheckFailed = errors.New("security contact check failed")

func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <dir>",
		Short: "Check one extracted plugin or theme directory and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := security.Scan(args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if strict && !res.Passes() {
				return fmt.Errorf("%w: %s", errCheckFailed, res.Directory())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Return an error when the package does not pass")

	return cmd
}
