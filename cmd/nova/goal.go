package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/benhoenig/NOVA-II/internal/goal"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Inspect and update goals",
}

func init() {
	goalCmd.AddCommand(goalListCmd)
	goalCmd.AddCommand(goalShowCmd)
	goalCmd.AddCommand(goalStatusCmd)
	goalCmd.AddCommand(goalNoteCmd)
	goalCmd.AddCommand(goalScheduleCmd)
	goalCmd.AddCommand(goalDueCmd)
	goalCmd.AddCommand(goalDeleteCmd)
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals, active first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		goals, err := a.repo.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Println("No goals yet.")
			return nil
		}
		now := time.Now().In(a.loc)
		for _, g := range goals {
			line := fmt.Sprintf("%s  %-9s %-6s %s", g.ID, g.DisplayStatus(now), g.Priority, g.Name)
			if g.DueDate != nil {
				line += fmt.Sprintf("  (due %s)", g.DueDate.Format("2006-01-02"))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show <goal>",
	Short: "Show one goal with its plan and notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := goal.Resolve(cmd.Context(), a.repo, args[0])
		if err != nil {
			return err
		}
		now := time.Now().In(a.loc)

		fmt.Printf("%s  %s\n", g.ID, g.Name)
		fmt.Printf("  Status:   %s\n", g.DisplayStatus(now))
		fmt.Printf("  Priority: %s\n", g.Priority)
		if g.Category != "" {
			fmt.Printf("  Category: %s\n", g.Category)
		}
		if g.StartDate != nil {
			fmt.Printf("  Start:    %s\n", g.StartDate.Format("2006-01-02"))
		}
		if g.DueDate != nil {
			fmt.Printf("  Due:      %s\n", g.DueDate.Format("2006-01-02"))
		}
		if g.Schedule != nil {
			fmt.Printf("  Remind:   %s\n", g.Schedule)
		}
		if g.Description != "" {
			fmt.Printf("  About:    %s\n", g.Description)
		}

		tasks, err := a.repo.ListTasks(cmd.Context(), g.ID)
		if err != nil {
			return err
		}
		if len(tasks) > 0 {
			fmt.Println("  Plan:")
			for _, t := range tasks {
				mark := " "
				if t.Status == goal.TaskDone {
					mark = "x"
				}
				fmt.Printf("    [%s] %d. %s", mark, t.Seq, t.Name)
				if t.Timeline != "" {
					fmt.Printf(" (%s)", t.Timeline)
				}
				fmt.Println()
			}
		}
		if g.Notes != "" {
			fmt.Println("  Notes:")
			for _, n := range strings.Split(g.Notes, "\n") {
				fmt.Printf("    %s\n", n)
			}
		}
		return nil
	},
}

var goalStatusCmd = &cobra.Command{
	Use:   "status <goal> <active|paused|completed|cancelled>",
	Short: "Change a goal's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, ok := goal.ParseStatus(args[1])
		if !ok {
			return fmt.Errorf("unknown status %q", args[1])
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.machine.ChangeStatus(cmd.Context(), args[0], st, time.Now().In(a.loc))
		if err != nil {
			return err
		}
		fmt.Printf("%s %s is now %s\n", g.ID, g.Name, g.Status)
		return nil
	},
}

var goalNoteCmd = &cobra.Command{
	Use:   "note <goal> <text>...",
	Short: "Append a progress note",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.machine.AddNote(cmd.Context(), args[0], strings.Join(args[1:], " "), time.Now().In(a.loc))
		if err != nil {
			return err
		}
		fmt.Printf("Noted on %s\n", g.ID)
		return nil
	},
}

var goalScheduleCmd = &cobra.Command{
	Use:   "schedule <goal> <phrase>...",
	Short: "Set the reminder schedule from a phrase like \"daily 9am\" or \"ทุกวันอังคาร 2 ทุ่ม\"",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.machine.Reschedule(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s reminders set to %s\n", g.ID, g.Schedule)
		return nil
	},
}

var goalDueCmd = &cobra.Command{
	Use:   "due <goal> <phrase>...",
	Short: "Set the due date from a phrase like \"next friday\" or \"สิ้นเดือน\"",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.machine.SetDueDate(cmd.Context(), args[0], strings.Join(args[1:], " "), time.Now().In(a.loc))
		if err != nil {
			return err
		}
		fmt.Printf("%s is now due %s\n", g.ID, g.DueDate.Format("2006-01-02"))
		return nil
	},
}

var goalDeleteCmd = &cobra.Command{
	Use:   "delete <goal>",
	Short: "Delete a goal and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.machine.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s %s\n", g.ID, g.Name)
		return nil
	},
}
