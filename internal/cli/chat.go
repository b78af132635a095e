package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/auth"
	"github.com/duetchat/duet/internal/chat"
	"github.com/duetchat/duet/internal/message"
	"github.com/duetchat/duet/internal/plan"
)

var (
	myMessageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	partnerMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	chatTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	chatInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your partner",
	Long: `Open the conversation and keep it synced while you type. New
messages from your partner appear as they arrive; everything your partner
sent is marked read.

Commands inside the chat:
  /plans    ask the AI for date plan suggestions
  /send N   share suggestion number N into the chat
  /quit     leave`,
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

		user, err := auth.NewService(client, a.sessions, a.logger).CurrentUser(cmd.Context(), sessionID)
		if err != nil {
			return err
		}

		renderer := &chatRenderer{}
		syncer, err := chat.NewSyncer(message.NewService(client), user,
			chat.WithInterval(a.cfg.PollInterval),
			chat.WithLogger(a.logger),
			chat.WithOnUpdate(renderer.Render),
		)
		if errors.Is(err, chat.ErrNoPartner) {
			return fmt.Errorf("no partner to chat with; connect first with `duet partner connect <code>`")
		}
		if err != nil {
			return err
		}

		partnerName := "your partner"
		if user.Partner != nil {
			if partnerName = user.Partner.DisplayName; partnerName == "" {
				partnerName = user.Partner.Username
			}
		}
		fmt.Println(chatInfoStyle.Render("Chatting with " + partnerName + ". Type a message, or /quit to leave."))

		syncer.Start(cmd.Context())
		defer syncer.Stop()

		return chatLoop(cmd, syncer, plan.NewService(client, a.logger))
	},
}

func chatLoop(cmd *cobra.Command, syncer *chat.Syncer, plans *plan.Service) error {
	scanner := bufio.NewScanner(os.Stdin)
	var lastPlans []plan.Plan

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/q":
			return nil
		case line == "/plans":
			suggested, err := printSuggestions(cmd.Context(), plans, os.Stdout)
			if err != nil {
				fmt.Fprintln(os.Stderr, chatInfoStyle.Render(err.Error()))
				continue
			}
			lastPlans = suggested
		case strings.HasPrefix(line, "/send "):
			n := 0
			if _, err := fmt.Sscanf(line, "/send %d", &n); err != nil || n < 1 || n > len(lastPlans) {
				fmt.Fprintln(os.Stderr, chatInfoStyle.Render("usage: /send N (after /plans)"))
				continue
			}
			if err := syncer.Send(cmd.Context(), plan.FormatPlanMessage(lastPlans[n-1])); err != nil {
				fmt.Fprintln(os.Stderr, chatInfoStyle.Render("send failed: "+err.Error()))
			}
		default:
			if err := syncer.Send(cmd.Context(), line); err != nil {
				if errors.Is(err, chat.ErrSendInFlight) {
					fmt.Fprintln(os.Stderr, chatInfoStyle.Render("still sending the previous message"))
					continue
				}
				fmt.Fprintln(os.Stderr, chatInfoStyle.Render("send failed: "+err.Error()))
			}
		}
	}
	return scanner.Err()
}

// chatRenderer prints only what changed between snapshots. Message ids are
// monotonic on the server, so anything above the high-water mark is new.
type chatRenderer struct {
	mu     sync.Mutex
	lastID int64
}

func (r *chatRenderer) Render(msgs []chat.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := msgs
	if r.lastID == 0 && len(msgs) > 20 {
		// First paint: just the recent history.
		fresh = msgs[len(msgs)-20:]
	}
	for _, m := range fresh {
		if m.ID <= r.lastID {
			continue
		}
		r.lastID = m.ID
		ts := chatTimeStyle.Render(m.Time)
		switch m.Sender {
		case chat.SenderMe:
			fmt.Println(ts + " " + myMessageStyle.Render("you: "+m.Text))
		default:
			fmt.Println(ts + " " + partnerMessageStyle.Render(m.Text))
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
