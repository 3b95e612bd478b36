package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/funkyHat/orchard/pkg/engine"
	"github.com/funkyHat/orchard/pkg/plan"
	"github.com/funkyHat/orchard/pkg/storage"
	"github.com/funkyHat/orchard/pkg/telemetry"
)

var (
	// Global flags
	planPath     string
	deployment   string
	backend      string
	storageDir   string
	resourcesDir string
	clearState   bool
	verbose      bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orchard",
		Short: "Orchard - local deployment workflow engine",
		Long: `Orchard executes workflows against a compiled deployment plan in a single
process, keeping node instance state consistent under concurrent updates.

The plan (nodes, node instances, workflows, outputs) comes pre-compiled from
an external blueprint compiler; workflow and operation implementations are
registered in-process by their hosting binary.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&planPath, "plan", "p", "plan.yaml", "compiled plan document path")
	rootCmd.PersistentFlags().StringVarP(&deployment, "name", "n", "", "deployment name (defaults to the plan name)")
	rootCmd.PersistentFlags().StringVarP(&backend, "storage", "s", "memory", "storage backend (memory, file, sqlite)")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage-dir", "", "base directory for persistent backends")
	rootCmd.PersistentFlags().StringVar(&resourcesDir, "resources", "", "blueprint resources root (defaults to the plan's directory)")
	rootCmd.PersistentFlags().BoolVar(&clearState, "clear", false, "clear prior persisted state for this deployment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newExecuteCommand())
	rootCmd.AddCommand(newOutputsCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newDevCommand())

	return rootCmd
}

// buildEnvironment loads the plan, opens the selected storage backend and
// constructs a validated environment. The returned cleanup closes the
// backend.
func buildEnvironment(ctx context.Context) (*engine.Environment, func(), error) {
	p, err := plan.Load(planPath)
	if err != nil {
		return nil, nil, err
	}

	resources := resourcesDir
	if resources == "" {
		resources = filepath.Dir(planPath)
	}

	st, err := storage.New(ctx, storage.Config{
		Backend:       storage.Backend(backend),
		Name:          deploymentName(p),
		ResourcesRoot: resources,
		Dir:           storageDir,
		Clear:         clearState,
	}, p)
	if err != nil {
		return nil, nil, err
	}

	logCfg := telemetry.DefaultConfig().Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := telemetry.NewLogger(logCfg)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	env, err := engine.NewEnvironment(engine.Config{
		Name:    deploymentName(p),
		Plan:    p,
		Storage: st,
		Logger:  logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return env, func() { st.Close() }, nil
}

func deploymentName(p *plan.Plan) string {
	if deployment != "" {
		return deployment
	}
	if p.Name != "" {
		return p.Name
	}
	return "local"
}
