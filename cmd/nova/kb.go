package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benhoenig/NOVA-II/internal/kb"
)

var (
	kbCategory string
	kbTags     string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Store and search the knowledge base",
}

func init() {
	kbAddCmd.Flags().StringVarP(&kbCategory, "category", "c", "", "Category (notes, lessons, business, customers, other)")
	kbAddCmd.Flags().StringVar(&kbTags, "tags", "", "Comma-separated tags")
	kbListCmd.Flags().StringVarP(&kbCategory, "category", "c", "", "Only entries in this category")

	kbCmd.AddCommand(kbAddCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbListCmd)
}

var kbAddCmd = &cobra.Command{
	Use:   "add <title> [content]...",
	Short: "File a new entry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry := &kb.Entry{
			Title:    args[0],
			Content:  strings.Join(args[1:], " "),
			Category: kb.Category(kbCategory),
			Tags:     kbTags,
		}
		if err := a.db.AddEntry(cmd.Context(), entry); err != nil {
			return err
		}
		fmt.Printf("Saved %s (%s)\n", entry.ID, entry.Category)
		return nil
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search entries by keyword, Thai or English",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.db.SearchEntries(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s\n", e.ID, e.Title)
			if e.Content != "" {
				fmt.Printf("    %s\n", e.Content)
			}
		}
		return nil
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.db.ListEntries(cmd.Context(), kbCategory)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries yet.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-15s %s\n", e.ID, e.Category, e.Title)
		}
		return nil
	},
}
