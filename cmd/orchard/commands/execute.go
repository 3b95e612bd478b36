package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/funkyHat/orchard/pkg/engine"
)

func newExecuteCommand() *cobra.Command {
	var (
		params      []string
		allowCustom bool
		retries     int
		retryEvery  time.Duration
		poolSize    int
	)

	cmd := &cobra.Command{
		Use:   "execute <workflow>",
		Short: "Execute a workflow from the plan",
		Long: `Execute runs a named workflow from the compiled plan to completion.

Parameters are supplied as repeated --param key=value flags; values are parsed
as YAML scalars, so --param replicas=3 yields an integer and --param
name=web a string. Parameters the workflow does not declare are rejected
unless --allow-custom-parameters is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			supplied, err := parseParams(params)
			if err != nil {
				return err
			}

			env, cleanup, err := buildEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			opts := engine.DefaultExecuteOptions()
			opts.AllowCustomParameters = allowCustom
			opts.TaskRetries = retries
			opts.TaskRetryInterval = retryEvery
			opts.TaskThreadPoolSize = poolSize

			return env.Execute(cmd.Context(), args[0], supplied, opts)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "workflow parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&allowCustom, "allow-custom-parameters", false, "accept parameters the workflow does not declare")
	cmd.Flags().IntVar(&retries, "task-retries", -1, "task retry count forwarded to the workflow (-1 for infinite)")
	cmd.Flags().DurationVar(&retryEvery, "task-retry-interval", 30*time.Second, "delay between task retries")
	cmd.Flags().IntVar(&poolSize, "task-thread-pool-size", engine.DefaultTaskThreadPoolSize, "task pool size forwarded to the workflow")

	return cmd
}

// parseParams converts repeated key=value flags into a parameter map, parsing
// each value as a YAML scalar so numbers and booleans keep their type.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}
