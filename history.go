package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/driveconn/internal/ledger"
)

var flagHistoryLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "List recent connection checks for a user",
		Long: `List the most recent recorded connection checks for a user, newest
first. Every status query records its outcome, so the history shows when a
connection degraded and what the token error was at the time.`,
		Args: cobra.ExactArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().IntVar(&flagHistoryLimit, "limit", ledger.DefaultListLimit, "maximum number of checks to list")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	checks, err := a.ledger.ListRecent(cmd.Context(), args[0], flagHistoryLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(checks)
	}

	if len(checks) == 0 {
		statusf("No recorded checks for %s\n", args[0])

		return nil
	}

	headers := []string{"CHECKED", "STATE", "TOKEN", "ACCOUNT", "ERROR"}
	rows := make([][]string, 0, len(checks))

	for _, c := range checks {
		rows = append(rows, []string{
			formatTime(c.CheckedAt),
			c.State(),
			yesNo(c.HasToken),
			yesNo(c.HasProviderAccount),
			c.TokenError,
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
