package cmd

import (
	"fmt"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3wizard/internal/ui"
)

var (
	accountKeyFlag   string
	accountRemoveYes bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage signing accounts",
}

var accountImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a private key",
	Long: `Import a private key and store it in the OS keychain (or an encrypted
file under the config dir when no keychain is available).

Without --key the key is read from the terminal without echo. The first
account imported becomes the default sender.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := accountKeyFlag
		if key == "" {
			var err error
			if key, err = keyring.TerminalPrompt("Private key"); err != nil {
				return err
			}
		}
		mgr, err := accountManager(true)
		if err != nil {
			return err
		}
		a, err := mgr.Import(args[0], key)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Account %q imported: %s", a.Name, ui.Addr(a.Address))))
		if !a.IsDefault {
			fmt.Fprintln(out, ui.Hint(fmt.Sprintf("Make it the default with: w3wizard account default %s", a.Name)))
		}
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := accountManager(false)
		if err != nil {
			return err
		}
		accounts, err := mgr.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(accounts) == 0 {
			fmt.Fprintln(out, ui.Info("No accounts yet."))
			fmt.Fprintln(out, ui.Hint("Import one with: w3wizard account import <name>"))
			return nil
		}
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Default", Width: 7},
		})
		for _, a := range accounts {
			def := ""
			if a.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{a.Name, a.Address, def})
		}
		fmt.Fprint(out, t.Render())
		return nil
	},
}

var accountDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default sending account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := accountManager(false)
		if err != nil {
			return err
		}
		if err := mgr.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default account set to %q", args[0])))
		return nil
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an account and delete its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !accountRemoveYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Delete account %q and its key?", args[0])) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := accountManager(true)
		if err != nil {
			return err
		}
		if err := mgr.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Account %q removed", args[0])))
		return nil
	},
}

func init() {
	accountImportCmd.Flags().StringVar(&accountKeyFlag, "key", "", "hex private key (prompted when omitted)")
	accountRemoveCmd.Flags().BoolVarP(&accountRemoveYes, "yes", "y", false, "skip confirmation")

	accountCmd.AddCommand(accountImportCmd, accountListCmd, accountDefaultCmd, accountRemoveCmd)
}
