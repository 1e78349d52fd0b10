package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to NOVA from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return runChat(cmd.Context(), a)
	},
}

func runChat(ctx context.Context, a *app) error {
	scanner := bufio.NewScanner(os.Stdin)

	// Check if stdin is a pipe (non-interactive)
	stat, _ := os.Stdin.Stat()
	isPipe := (stat.Mode() & os.ModeCharDevice) == 0

	if !isPipe {
		fmt.Print("nova> ")
	}

	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			if !isPipe {
				fmt.Print("nova> ")
			}
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := a.assistant.Handle(ctx, "cli", input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			fmt.Println(reply)
		}

		if isPipe {
			break // single exchange in pipe mode
		}
		fmt.Print("nova> ")
	}
	return scanner.Err()
}
