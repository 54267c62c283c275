package main

import (
	"github.com/spf13/cobra"
)

func newDisconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Remove a user's stored token and cached client",
		Long: `Remove the locally stored token for a user and evict their cached
client handle. Does not revoke the grant at Google — do that from the
Google account's security settings.`,
		RunE: runDisconnect,
	}

	cmd.Flags().String("user", "", "user id to disconnect")
	cmd.Flags().Bool("all", false, "evict every cached client handle")
	cmd.MarkFlagsOneRequired("user", "all")

	return cmd
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	if all {
		a.service.EvictAll()
		statusf("Evicted all cached client handles.\n")

		return nil
	}

	userID, err := cmd.Flags().GetString("user")
	if err != nil {
		return err
	}

	if err := a.store.Delete(userID); err != nil {
		return err
	}

	a.service.Evict(userID)

	statusf("Disconnected %s.\n", userID)

	return nil
}
