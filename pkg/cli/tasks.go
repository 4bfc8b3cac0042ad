package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exustash/batect/pkg/config"
	"github.com/exustash/batect/pkg/types"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks defined in the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks()
		},
	}
}

func runTasks() error {
	manager := config.NewManager()
	file, err := manager.LoadConfig(cfgFile)
	if err != nil {
		printError(err.Error())
		return &exitCodeError{code: types.ExitCodeConfigError}
	}

	names := file.TaskNames()
	if len(names) == 0 {
		printInfo("No tasks are defined.")
		return nil
	}

	printInfo("Available tasks:")
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	for _, name := range names {
		task := file.Tasks[name]
		fmt.Fprintf(w, "  %s\t%s\n", name, task.Description)
	}
	return w.Flush()
}
