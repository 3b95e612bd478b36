package commands

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/funkyHat/orchard/pkg/engine"
)

func newDevCommand() *cobra.Command {
	var (
		allowCustom bool
		params      []string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dev <workflow>",
		Short: "Watch the plan and resources, re-running a workflow on change",
		Long: `Dev runs the named workflow once, then watches the plan file and the
resources root and re-runs the workflow whenever either changes. Each run
reloads the plan and rebuilds the environment, so mapping and parameter
errors surface immediately after a save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			supplied, err := parseParams(params)
			if err != nil {
				return err
			}
			return runDevLoop(cmd.Context(), args[0], supplied, allowCustom, debounce)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "workflow parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&allowCustom, "allow-custom-parameters", false, "accept parameters the workflow does not declare")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "delay before re-running after a change")

	return cmd
}

func runDevLoop(ctx context.Context, workflow string, params map[string]any, allowCustom bool, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	resources := resourcesDir
	if resources == "" {
		resources = filepath.Dir(planPath)
	}
	if err := watcher.Add(resources); err != nil {
		return err
	}
	log.Info().Str("path", resources).Str("workflow", workflow).Msg("Watching for changes")

	runOnce := func() {
		env, cleanup, err := buildEnvironment(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Environment rebuild failed")
			return
		}
		defer cleanup()

		opts := engine.DefaultExecuteOptions()
		opts.AllowCustomParameters = allowCustom
		if err := env.Execute(ctx, workflow, params, opts); err != nil {
			log.Error().Err(err).Msg("Workflow run failed")
		}
	}
	runOnce()

	var rerunTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Editors write temp files alongside the real ones.
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			if rerunTimer != nil {
				rerunTimer.Stop()
			}
			rerunTimer = time.AfterFunc(debounce, runOnce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}
