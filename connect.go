package main

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/driveconn/internal/drive"
)

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Link a Google Drive account via browser sign-in",
		Long: `Link a Google Drive account for a user.

Opens the default browser for Google's consent screen (authorization
code + PKCE) requesting the narrow drive.file scope, then stores the
resulting token in the local token store under the given user id.`,
		RunE: runConnect,
	}

	cmd.Flags().String("user", "", "user id to store the token under")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runConnect(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	userID, err := cmd.Flags().GetString("user")
	if err != nil {
		return err
	}

	if a.cfg.Drive.ClientID == "" {
		return fmt.Errorf("drive.client_id is not configured (set it in the config file)")
	}

	app := drive.OAuthApp{
		ClientID:     a.cfg.Drive.ClientID,
		ClientSecret: a.cfg.Drive.ClientSecret,
	}

	tok, err := drive.LoginWithBrowser(cmd.Context(), app, openURL, a.logger)
	if err != nil {
		return err
	}

	if err := a.store.Save(userID, tok, nil); err != nil {
		return err
	}

	// A cached handle from before the login would shadow the new token.
	a.service.Evict(userID)

	statusf("Connected. Token stored for %s.\n", userID)

	return nil
}

// openURL launches the default browser for the given URL.
func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	default:
		return fmt.Errorf("cannot open browser on %s", runtime.GOOS)
	}
}
