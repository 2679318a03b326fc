// Package main provides the entry point for the cadence CLI.
package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/state"
)

// newTaskCmd creates the task parent command with subcommands.
func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the task graph",
		Long: `Manage the task graph the TDD loop works through.

Tasks carry a priority and may depend on other tasks. A task is ready
once all of its dependencies are done; the loop always works on the
highest-priority ready task.

Subcommands:
  list       Show all tasks
  add        Add a task
  next       Show (and optionally start) the next ready task
  complete   Mark a task done
  decompose  Split a task into subtasks

Examples:
  cadence task add "write the parser" --priority 2
  cadence task add "wire the parser" --dep ca_...
  cadence task next --start
  cadence task complete ca_...`,
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskNextCmd())
	cmd.AddCommand(newTaskCompleteCmd())
	cmd.AddCommand(newTaskDecomposeCmd())
	return cmd
}

// newTaskListCmd creates the task list subcommand.
func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all tasks",
		RunE:  runTaskList,
	}
}

// runTaskList executes the task list command.
func runTaskList(cmd *cobra.Command, _ []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{"tasks": st.Tasks})
	}

	if len(st.Tasks) == 0 {
		printer.Print("No tasks yet. Add one with 'cadence task add'.\n")
		return nil
	}

	rows := make([][]string, 0, len(st.Tasks))
	for i := range st.Tasks {
		task := &st.Tasks[i]
		rows = append(rows, []string{
			task.ID,
			string(task.Status),
			strconv.Itoa(task.Priority),
			task.Title,
		})
	}
	printer.Table([]string{"ID", "Status", "Priority", "Title"}, rows)
	return nil
}

// newTaskAddCmd creates the task add subcommand.
func newTaskAddCmd() *cobra.Command {
	var priority int
	var deps []string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskAdd(cmd, args[0], priority, deps)
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority (higher runs first)")
	cmd.Flags().StringArrayVar(&deps, "dep", nil, "Dependency task ID (repeatable)")
	return cmd
}

// runTaskAdd executes the task add command.
func runTaskAdd(cmd *cobra.Command, title string, priority int, deps []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	now := time.Now()
	id, err := st.AddTask(title, deps, priority, now)
	if err != nil {
		printer.Error(err)
		return err
	}
	if err := proj.Store.Save(st, now); err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"id":     id,
			"status": string(st.FindTask(id).Status),
		})
	}
	printer.Print("Added %s (%s)\n", id, st.FindTask(id).Status)
	return nil
}

// newTaskNextCmd creates the task next subcommand.
func newTaskNextCmd() *cobra.Command {
	var start bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next ready task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTaskNext(cmd, start)
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "Mark the task in progress")
	return cmd
}

// runTaskNext executes the task next command.
func runTaskNext(cmd *cobra.Command, start bool) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	task := st.NextTask()
	if task == nil {
		if printer.IsJSON() {
			return printer.Success(map[string]any{"task": nil})
		}
		printer.Print("No ready tasks.\n")
		return nil
	}

	if start {
		now := time.Now()
		if err := st.StartTask(task.ID); err != nil {
			printer.Error(err)
			return err
		}
		if err := proj.Store.Save(st, now); err != nil {
			printer.Error(err)
			return err
		}
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"task":    task,
			"started": start,
		})
	}
	printer.KeyValue("ID", task.ID)
	printer.KeyValue("Title", task.Title)
	printer.KeyValue("Status", string(task.Status))
	return nil
}

// newTaskCompleteCmd creates the task complete subcommand.
func newTaskCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskComplete(cmd, args[0])
		},
	}
}

// runTaskComplete executes the task complete command.
func runTaskComplete(cmd *cobra.Command, id string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	if err := st.CompleteTask(id); err != nil {
		printer.Error(err)
		return err
	}
	if err := proj.Store.Save(st, time.Now()); err != nil {
		printer.Error(err)
		return err
	}

	ready := readyTaskTitles(st)
	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"id":    id,
			"ready": ready,
		})
	}
	printer.Print("Completed %s\n", id)
	for _, title := range ready {
		printer.Print("  ready: %s\n", title)
	}
	return nil
}

// newTaskDecomposeCmd creates the task decompose subcommand.
func newTaskDecomposeCmd() *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:   "decompose <id> <subtask>...",
		Short: "Split a task into subtasks",
		Long: `Split a task into subtasks.

The parent task is blocked until every subtask is done. Subtasks
inherit the parent's dependencies.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskDecompose(cmd, args[0], args[1:], priority)
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority for the subtasks")
	return cmd
}

// runTaskDecompose executes the task decompose command.
func runTaskDecompose(cmd *cobra.Command, id string, titles []string, priority int) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	subtasks := make([]state.Subtask, len(titles))
	for i, title := range titles {
		subtasks[i] = state.Subtask{Title: title, Priority: priority}
	}

	now := time.Now()
	ids, err := st.Decompose(id, subtasks, now)
	if err != nil {
		printer.Error(err)
		return err
	}
	if err := proj.Store.Save(st, now); err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"parent":   id,
			"subtasks": ids,
		})
	}
	printer.Print("Split %s into %d subtasks\n", id, len(ids))
	for _, sub := range ids {
		printer.Print("  %s\n", sub)
	}
	return nil
}

// readyTaskTitles lists titles of tasks currently ready to start.
func readyTaskTitles(st *state.SystemState) []string {
	var titles []string
	for i := range st.Tasks {
		if st.Tasks[i].Status == state.StatusReady {
			titles = append(titles, st.Tasks[i].Title)
		}
	}
	return titles
}

