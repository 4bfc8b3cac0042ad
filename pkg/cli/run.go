package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/exustash/batect/internal/engine"
	"github.com/exustash/batect/pkg/config"
	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/process"
	"github.com/exustash/batect/pkg/types"
)

type runFlags struct {
	noCleanupAfterSuccess bool
	noCleanupAfterFailure bool
	quiet                 bool
	notifications         bool
	noTelemetry           bool
	maxParallelism        int
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] task [-- args...]",
		Short: "Run a task and its prerequisites",
		Long: `Run a task: its prerequisite tasks first, then the task's containers.

Arguments after -- are appended to the run container's command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), args[0], args[1:], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noCleanupAfterSuccess, "no-cleanup-after-success", false, "leave containers and networks behind after the task succeeds")
	cmd.Flags().BoolVar(&flags.noCleanupAfterFailure, "no-cleanup-after-failure", false, "leave containers and networks behind after the task fails, for debugging")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "only print the task's own output")
	cmd.Flags().BoolVar(&flags.notifications, "notifications", false, "raise a desktop notification when the task finishes")
	cmd.Flags().BoolVar(&flags.noTelemetry, "no-telemetry", false, "do not record session metadata (also BATECT_NO_TELEMETRY)")
	cmd.Flags().IntVar(&flags.maxParallelism, "max-parallelism", engine.DefaultParallelism, "maximum number of setup steps to run at once")

	return cmd
}

func runTask(ctx context.Context, task string, extraArgs []string, flags *runFlags) error {
	log := logger.CreateLogger(logLevel)

	manager := config.NewManager()
	file, err := manager.LoadConfig(cfgFile)
	if err != nil {
		printError(err.Error())
		return &exitCodeError{code: types.ExitCodeConfigError}
	}
	if err := manager.ValidateConfig(file); err != nil {
		printError(err.Error())
		return &exitCodeError{code: types.ExitCodeConfigError}
	}

	opts := types.DefaultRunOptions()
	opts.ExtraArgs = extraArgs
	opts.Quiet = flags.quiet
	if flags.noCleanupAfterSuccess {
		opts.CleanupAfterSuccess = types.CleanupDisabled
	}
	if flags.noCleanupAfterFailure {
		opts.CleanupAfterFailure = types.CleanupDisabled
	}

	telemetryEnabled := !flags.noTelemetry && !viper.GetBool("no_telemetry")

	bus := events.NewBus()
	factory := engine.NewDependencyFactory(log, flags.notifications, telemetryEnabled)
	deps := factory.CreateWithOverrides(interfaces.EngineDependencies{Events: bus})

	renderer := NewRenderer(os.Stdout, flags.quiet)
	rendered := renderer.Start(bus.Subscribe(0))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The listener runs under the outer context, not runCtx: the first
	// signal cancels runCtx, and the listener must stay alive to catch a
	// second signal during teardown.
	interrupts := process.NewInterruptHandler(log)
	interrupts.RegisterHandler(cancel)
	interrupts.Start(ctx)
	defer interrupts.Stop()

	streams := interfaces.IOStreams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	runner := engine.NewSessionRunner(deps, log, streams, flags.maxParallelism, flags.notifications)
	exitCode := runner.Run(runCtx, file, task, opts)

	bus.Close()
	<-rendered

	if exitCode == 0 {
		return nil
	}
	return &exitCodeError{code: exitCode}
}
