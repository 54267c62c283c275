package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id>",
		Short: "Verify Drive write access for a user",
		Long: `Resolve the user's token and verify it against Drive by creating
and deleting a disposable marker folder. Exits 0 when the connection is
healthy and 1 otherwise, which makes it suitable for scripts and health
checks. The check never panics or errors out on a broken connection; a
failure is reported purely through the exit code.`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.service.CheckConnection(cmd.Context(), args[0]) {
		statusf("Connection check failed for %s\n", args[0])

		return errCheckFailed
	}

	statusf("Connection healthy for %s\n", args[0])

	return nil
}
