package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newOutputsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "outputs",
		Short: "Evaluate and print deployment outputs",
		Long: `Outputs evaluates the plan's output definitions against current node
instance state and prints them as JSON. Attribute references resolve to the
ordered list of that attribute across the node's instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := buildEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			outputs, err := env.Outputs()
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(outputs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}
