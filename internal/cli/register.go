package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/auth"
	"github.com/duetchat/duet/internal/model"
)

var (
	registerUsername    string
	registerEmail       string
	registerPassword    string
	registerDisplayName string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		password := registerPassword
		if password == "" {
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		svc := auth.NewService(a.client(""), a.sessions, a.logger)
		result, err := svc.Register(cmd.Context(), model.RegisterInput{
			Username:    registerUsername,
			Email:       registerEmail,
			Password:    password,
			DisplayName: registerDisplayName,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Welcome, %s!\n", result.Token.User.Username)
		fmt.Printf("Session: %s\n", result.SessionID)
		fmt.Printf("Invite code: %s\n", result.Token.User.InviteCode)
		fmt.Println("Share your invite code with your partner, or connect with theirs: duet partner connect <code>")
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Email address")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Password (prompted if omitted)")
	registerCmd.Flags().StringVarP(&registerDisplayName, "display-name", "d", "", "Display name")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(registerCmd)
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password required")
	}
	return password, nil
}
