package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/driveconn/internal/conn"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show a user's Drive connection state",
		Long: `Report the full connection state for a user: whether a provider
account is linked, whether a usable token exists, and whether the token
actually carries write authority (verified with a disposable-marker
probe). Each distinct state comes with reconnection guidance.`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.service.ConnectionStatus(cmd.Context(), args[0])

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(st)
	}

	printStatusText(st)

	return nil
}

// stateGuidance maps each connection state to the next step shown to
// the user. The four states render materially different guidance.
var stateGuidance = map[string]string{
	conn.StateNotConnected:   "No Google account linked. Run 'driveconn connect' to link one.",
	conn.StateNeedsReconnect: "Account linked but no usable token. Run 'driveconn connect' to re-authorize.",
	conn.StateTokenRejected:  "Token present but rejected by Drive (revoked or out of scope). Run 'driveconn connect' to restore access.",
	conn.StateConnected:      "Connection healthy.",
}

func printStatusText(st conn.Status) {
	fmt.Printf("User:     %s\n", st.UserID)
	fmt.Printf("Provider: %s\n", st.Provider)
	fmt.Printf("State:    %s\n", st.State())
	fmt.Printf("  Account linked: %s\n", yesNo(st.HasProviderAccount))
	fmt.Printf("  Token present:  %s\n", yesNo(st.HasToken))

	if st.HasToken {
		fmt.Printf("  Probe passed:   %s\n", yesNo(st.Connected))
	}

	if st.TokenError != "" {
		fmt.Printf("  Token error:    %s\n", st.TokenError)
	}

	fmt.Println()
	fmt.Println(stateGuidance[st.State()])
}
