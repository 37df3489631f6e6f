package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danmuck/taskrunner/internal/client"
	"github.com/danmuck/taskrunner/internal/logging"
	"github.com/danmuck/taskrunner/internal/protocol/record"
	"github.com/danmuck/taskrunner/internal/runner"
	"github.com/danmuck/taskrunner/internal/status"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	socketPath       string
	statusSocketPath string
	depends          []string
	timeout          time.Duration
	verbose          bool

	rootCmd = &cobra.Command{
		Use:           "taskctl",
		Short:         "Submit and inspect taskrunner tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime(verbose)
		},
	}

	submitCmd = &cobra.Command{
		Use:   "submit NAME [-- ARGS...]",
		Short: "Register one task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := buildTask(args[0], depends, args[1:])
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, err := client.Dial(ctx, socketPath)
			if err != nil {
				return err
			}
			if err := c.Submit(task); err != nil {
				_ = c.Close()
				return err
			}
			log.Debug().Str("task", task.Name).Strs("depends", task.Depends).Msg("task submitted")
			return c.Close()
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			tasks, err := client.NewStatusClient(statusSocketPath).Tasks(ctx)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get NAME",
		Short: "Show one registered task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			view, ok, err := client.NewStatusClient(statusSocketPath).Task(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("task %q not registered", args[0])
			}
			return printTasks(cmd.OutOrStdout(), []status.TaskView{view})
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", runner.DefaultSocketPath, "Task socket path")
	rootCmd.PersistentFlags().StringVar(&statusSocketPath, "status-socket", "taskrunner-status.socket", "Status endpoint socket path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Dial and request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show more information")
	submitCmd.Flags().StringSliceVarP(&depends, "depends", "d", nil, "Prerequisite task names")

	rootCmd.AddCommand(submitCmd, listCmd, getCmd)
}

func buildTask(name string, depends []string, args []string) record.Task {
	task := record.Task{Name: name, Depends: make([]string, 0, len(depends))}
	for _, dep := range depends {
		if dep = strings.TrimSpace(dep); dep != "" {
			task.Depends = append(task.Depends, dep)
		}
	}
	for _, arg := range args {
		task.Args = append(task.Args, []byte(arg))
	}
	return task
}

func printTasks(w io.Writer, tasks []status.TaskView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDEPENDS\tARGS")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, strings.Join(t.Depends, ","), strings.Join(t.Args, " "))
	}
	return tw.Flush()
}
