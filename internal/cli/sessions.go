package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	expiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List local sessions",
	Long: `List every session known to the local state database, with its
login status. Sessions without a valid credential can no longer act as
their user until you log in again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.sessions.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions. Run `duet register` or `duet login`.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, sessionHeaderStyle.Render("SESSION")+"\t"+
			sessionHeaderStyle.Render("USER")+"\t"+
			sessionHeaderStyle.Render("CREATED")+"\t"+
			sessionHeaderStyle.Render("STATUS"))

		for _, s := range sessions {
			status := expiredStyle.Render("logged out")
			if cred, err := a.sessions.Credential(s.SessionID); err == nil && cred != nil {
				until := cred.ExpiresAt
				if exp, ok := tokenExpiry(cred.Token); ok && exp.Before(until) {
					until = exp
				}
				status = activeStyle.Render("active until " + until.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(w, "%s\t%s (#%d)\t%s\t%s\n",
				shortID(s.SessionID), s.Username, s.UserID,
				s.CreatedAt.Local().Format("2006-01-02 15:04"), status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

// tokenExpiry reads the exp claim out of a bearer token without verifying
// the signature. Verification is the server's job; locally the claim is
// only advisory, to show when the server will stop accepting the token.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
