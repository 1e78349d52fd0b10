package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/benhoenig/NOVA-II/internal/remind"
)

var remindUpdate bool

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Print the reminder digest that is due right now",
	Long: `Evaluate which goals are due for a reminder and print the digest.
Without --update nothing is stamped, so the same digest prints again on
the next run.`,
	RunE: runRemind,
}

func init() {
	remindCmd.Flags().BoolVar(&remindUpdate, "update", false, "Stamp scheduled goals as reminded")
}

func runRemind(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().In(a.loc)
	var dues []remind.Due
	if remindUpdate {
		dues, err = a.evaluator.EvaluateAndMark(cmd.Context(), now)
	} else {
		dues, err = a.evaluator.EvaluateDue(cmd.Context(), now)
	}
	if err != nil {
		return err
	}
	if len(dues) == 0 {
		fmt.Println("Nothing due right now.")
		return nil
	}
	fmt.Println(remind.FormatDigest(dues, now))
	return nil
}
