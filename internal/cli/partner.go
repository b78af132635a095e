package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/auth"
	"github.com/duetchat/duet/internal/model"
	"github.com/duetchat/duet/internal/partner"
)

var inviteCodeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212")).
	Padding(0, 1).
	Border(lipgloss.RoundedBorder())

var inviteRegenerate bool

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Show (or regenerate) your invite code",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, svc, err := partnerService(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var code *model.InviteCodeResponse
		if inviteRegenerate {
			code, err = svc.RegenerateInviteCode(ctx)
		} else {
			code, err = svc.InviteCode(ctx)
		}
		if err != nil {
			return err
		}

		fmt.Println(inviteCodeStyle.Render(code.InviteCode))
		fmt.Println("Your partner can connect with: duet partner connect " + code.InviteCode)
		return nil
	},
}

var partnerCmd = &cobra.Command{
	Use:   "partner",
	Short: "Manage your partner connection",
}

var partnerSearchCmd = &cobra.Command{
	Use:   "search <invite-code>",
	Short: "Look up who an invite code belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, svc, err := partnerService(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := svc.SearchByCode(ctx, args[0])
		if err != nil {
			return err
		}

		name := result.DisplayName
		if name == "" {
			name = result.Username
		}
		fmt.Printf("%s (@%s)\n", name, result.Username)
		if result.CanConnect {
			fmt.Println("Available. Connect with: duet partner connect " + args[0])
		} else {
			fmt.Println("Not available to connect (already has a partner, or it's you).")
		}
		return nil
	},
}

var partnerConnectCmd = &cobra.Command{
	Use:   "connect <invite-code>",
	Short: "Connect with your partner by invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, svc, err := partnerService(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := svc.ConnectByCode(ctx, args[0])
		if err != nil {
			return err
		}

		name := result.Partner.DisplayName
		if name == "" {
			name = result.Partner.Username
		}
		fmt.Printf("Connected with %s!\n", name)
		if result.ChatReady {
			fmt.Println("Start chatting: duet chat")
		}
		return nil
	},
}

var partnerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your partner connection status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, svc, err := partnerService(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := svc.Status(ctx)
		if err != nil {
			return err
		}
		if !status.HasPartner || status.Partner == nil {
			fmt.Println("No partner connected. Share your code with: duet invite")
			return nil
		}
		name := status.Partner.DisplayName
		if name == "" {
			name = status.Partner.Username
		}
		fmt.Printf("Partner: %s (@%s)\n", name, status.Partner.Username)
		return nil
	},
}

var partnerRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Disconnect from your partner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, a, svc, err := partnerService(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		msg, err := svc.Remove(ctx)
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "Partner removed."
		}
		fmt.Println(msg)
		return nil
	},
}

// partnerService wires up an authenticated partner service. The returned
// context carries the session id and cached user profile for downstream
// guards. The caller owns a.Close.
func partnerService(ctx context.Context) (context.Context, *app, *partner.Service, error) {
	a, err := newApp()
	if err != nil {
		return ctx, nil, nil, err
	}
	sessionID, err := a.resolveSession()
	if err != nil {
		a.Close()
		return ctx, nil, nil, err
	}
	client := a.client(sessionID)
	user, err := auth.NewService(client, a.sessions, a.logger).CurrentUser(ctx, sessionID)
	if err != nil {
		a.Close()
		return ctx, nil, nil, err
	}
	ctx = auth.WithAuth(ctx, auth.AuthContext{SessionID: sessionID, User: user})
	return ctx, a, partner.NewService(client), nil
}

func init() {
	inviteCmd.Flags().BoolVar(&inviteRegenerate, "regenerate", false, "Generate a new invite code (only while unpartnered)")
	rootCmd.AddCommand(inviteCmd)

	partnerCmd.AddCommand(partnerSearchCmd, partnerConnectCmd, partnerStatusCmd, partnerRemoveCmd)
	rootCmd.AddCommand(partnerCmd)
}
