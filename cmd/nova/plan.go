package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/benhoenig/NOVA-II/internal/goal"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate and work through action plans",
}

func init() {
	planCmd.AddCommand(planGenerateCmd)
	planCmd.AddCommand(planDoneCmd)
}

var planGenerateCmd = &cobra.Command{
	Use:   "generate <goal>",
	Short: "Draft a 3-7 step action plan for a goal",
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
		tasks, err := a.planner.Generate(cmd.Context(), g)
		if err != nil {
			return err
		}
		fmt.Printf("Plan for %s %s:\n", g.ID, g.Name)
		for _, t := range tasks {
			fmt.Printf("  %d. %s", t.Seq, t.Name)
			if t.Timeline != "" {
				fmt.Printf(" (%s)", t.Timeline)
			}
			fmt.Println()
		}
		return nil
	},
}

var planDoneCmd = &cobra.Command{
	Use:   "done <goal> <step>",
	Short: "Mark one plan step done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.Atoi(args[1])
		if err != nil || seq < 1 {
			return fmt.Errorf("step must be a positive number, got %q", args[1])
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.machine.UpdateTask(cmd.Context(), args[0], seq, goal.TaskDone, time.Now().In(a.loc))
		if err != nil {
			return err
		}
		fmt.Printf("Done: %d. %s\n", t.Seq, t.Name)
		return nil
	},
}
