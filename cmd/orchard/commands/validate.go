package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the plan and its operation mappings",
		Long: `Validate loads the plan, checks its structure, and resolves every
operation mapping it references against the registered task modules. A
mapping no registered module can serve fails validation; nothing is
executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := buildEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintf(cmd.OutOrStdout(), "plan valid: deployment %q\n", env.Name())
			return nil
		},
	}
}
