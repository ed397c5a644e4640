package main

import (
	"fmt"
	"strings"

	"github.com/ent0n29/pomochat/internal/tasks"
	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	var (
		file string
		user string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks from a task file",
		Long: `List tasks stored in a pomochat task file without starting the bot.
By default only incomplete tasks are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := tasks.NewFileStore(file).Load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			shown := 0
			for _, t := range state.Tasks {
				if t.Completed && !all {
					continue
				}
				if user != "" && !strings.EqualFold(t.Owner, user) {
					continue
				}
				mark := "☐"
				if t.Completed {
					mark = "☑"
				}
				fmt.Fprintf(out, "%s %s %s %s: %s\n", mark, t.CreatedDate, t.Owner, t.ID, t.Description)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "no tasks")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "tasks.json", "task file to read")
	cmd.Flags().StringVar(&user, "user", "", "only show tasks owned by this user")
	cmd.Flags().BoolVar(&all, "all", false, "include completed tasks")
	return cmd
}
