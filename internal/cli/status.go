package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/auth"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who you are and your partner state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID, err := a.resolveSession()
		if err != nil {
			return err
		}

		svc := auth.NewService(a.client(sessionID), a.sessions, a.logger)
		user, err := svc.CurrentUser(cmd.Context(), sessionID)
		if err != nil {
			return err
		}

		name := user.DisplayName
		if name == "" {
			name = user.Username
		}
		fmt.Printf("Logged in as %s (@%s)\n", name, user.Username)
		fmt.Printf("Session: %s\n", shortID(sessionID))
		fmt.Printf("Invite code: %s\n", user.InviteCode)
		if user.HasPartner && user.Partner != nil {
			pname := user.Partner.DisplayName
			if pname == "" {
				pname = user.Partner.Username
			}
			fmt.Printf("Partner: %s (@%s)\n", pname, user.Partner.Username)
		} else {
			fmt.Println("Partner: none (connect with `duet partner connect <code>`)")
		}
		fmt.Printf("API: %s\n", a.cfg.APIURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
