package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duetchat/duet/internal/vault"
)

var vaultPassphrase string

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Move your sessions between machines, encrypted",
}

var vaultExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write an encrypted copy of the local state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := vaultCredentials()
		if err != nil {
			return err
		}

		v := vault.New(a.db, a.cfg.StatePath, a.logger)
		if err := v.Export(args[0], passphrase); err != nil {
			return err
		}
		fmt.Printf("Exported state to %s\n", args[0])
		return nil
	},
}

var vaultImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the local state with an exported vault file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := vaultCredentials()
		if err != nil {
			return err
		}

		v := vault.New(a.db, a.cfg.StatePath, a.logger)
		if err := v.Import(args[0], passphrase); err != nil {
			return err
		}
		fmt.Println("State imported. Your sessions from the vault are now active.")
		return nil
	},
}

func vaultCredentials() (string, error) {
	if vaultPassphrase != "" {
		return vaultPassphrase, nil
	}
	return promptPassword("Vault passphrase: ")
}

func init() {
	vaultCmd.PersistentFlags().StringVar(&vaultPassphrase, "passphrase", "", "Vault passphrase (prompted if omitted)")
	vaultCmd.AddCommand(vaultExportCmd, vaultImportCmd)
	rootCmd.AddCommand(vaultCmd)
}
