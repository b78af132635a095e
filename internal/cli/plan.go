package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/auth"
	"github.com/duetchat/duet/internal/chat"
	"github.com/duetchat/duet/internal/message"
	"github.com/duetchat/duet/internal/plan"
)

var (
	planTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	planLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
)

var planSendIndex int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "AI date plan suggestions",
}

var planSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Ask the AI to suggest date plans from your conversation",
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
		client := a.client(sessionID)
		svc := plan.NewService(client, a.logger)

		plans, err := printSuggestions(cmd.Context(), svc, os.Stdout)
		if err != nil {
			return err
		}

		if planSendIndex > 0 {
			if planSendIndex > len(plans) {
				return fmt.Errorf("no suggestion %d (got %d)", planSendIndex, len(plans))
			}
			user, err := auth.NewService(client, a.sessions, a.logger).CurrentUser(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			syncer, err := chat.NewSyncer(message.NewService(client), user, chat.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if err := syncer.Send(cmd.Context(), plan.FormatPlanMessage(plans[planSendIndex-1])); err != nil {
				return err
			}
			fmt.Printf("Sent suggestion %d to your partner.\n", planSendIndex)
		}
		return nil
	},
}

var planTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the AI backend is reachable",
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

		resp := plan.NewService(a.client(sessionID), a.logger).Test(cmd.Context())
		fmt.Println(resp.Message)
		if !resp.Success {
			return fmt.Errorf("ai check failed: %s", resp.Error)
		}
		return nil
	},
}

// printSuggestions fetches suggestions, renders them numbered, and returns
// the plans so the caller can send one.
func printSuggestions(ctx context.Context, svc *plan.Service, w io.Writer) ([]plan.Plan, error) {
	resp := svc.Suggest(ctx)
	if !resp.Success {
		detail := resp.Error
		if detail == "" {
			detail = resp.Message
		}
		return nil, fmt.Errorf("suggestions unavailable: %s", detail)
	}

	fmt.Fprintln(w, resp.Message)
	if resp.Suggestions == nil || len(resp.Suggestions.Plans) == 0 {
		fmt.Fprintln(w, "No plans suggested this time.")
		return nil, nil
	}

	for i, p := range resp.Suggestions.Plans {
		fmt.Fprintf(w, "\n%s %s\n", planLabelStyle.Render(fmt.Sprintf("[%d]", i+1)), planTitleStyle.Render(p.Title))
		fmt.Fprintln(w, indent(p.Description))
		if p.Schedule != "" {
			fmt.Fprintf(w, "%s\n%s\n", planLabelStyle.Render("    Schedule"), indent(p.Schedule))
		}
		if p.Budget != "" {
			fmt.Fprintf(w, "%s %s\n", planLabelStyle.Render("    Budget"), p.Budget)
		}
		for _, h := range p.Highlights {
			fmt.Fprintf(w, "    + %s\n", h)
		}
		for _, n := range p.Notes {
			fmt.Fprintf(w, "    ! %s\n", n)
		}
	}
	return resp.Suggestions.Plans, nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = "    " + lines[i]
	}
	return strings.Join(lines, "\n")
}

func init() {
	planSuggestCmd.Flags().IntVar(&planSendIndex, "send", 0, "Send suggestion N to your partner after fetching")
	planCmd.AddCommand(planSuggestCmd, planTestCmd)
	rootCmd.AddCommand(planCmd)
}
