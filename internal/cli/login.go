package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/auth"
	"github.com/duetchat/duet/internal/model"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and start a new session",
	Long: `Log in with your username and password. Each login creates a new
session with its own id; the credential is kept in the local state
database for 7 days.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		password := loginPassword
		if password == "" {
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		svc := auth.NewService(a.client(""), a.sessions, a.logger)
		result, err := svc.Login(cmd.Context(), model.LoginInput{
			Username: loginUsername,
			Password: password,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Logged in as %s\n", result.Token.User.Username)
		fmt.Printf("Session: %s\n", result.SessionID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the current session",
	Long: `Discard the session's credential. The session's metadata stays in
the local state database so you can recognize it later; only the ability
to act as that user is removed.`,
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
		if err := svc.Logout(sessionID); err != nil {
			return err
		}
		fmt.Printf("Logged out of session %s\n", shortID(sessionID))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted if omitted)")
	loginCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
