package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3wizard/internal/abi"
	"github.com/Mohsinsiddi/w3wizard/internal/chain"
	"github.com/Mohsinsiddi/w3wizard/internal/config"
	"github.com/Mohsinsiddi/w3wizard/internal/contract"
	"github.com/Mohsinsiddi/w3wizard/internal/ui"
	"github.com/Mohsinsiddi/w3wizard/internal/wizard"
)

var (
	deployNoRegister bool
	execNoWait       bool
	removeYes        bool
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Deploy, call and register contracts",
}

// ── contract add ──────────────────────────────────────────────────────────────

var contractAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an existing contract to the watch list",
	Long: `Open the add-contract wizard.

Step 1 picks the ABI type: a bundled ABI (see: w3wizard contract builtins)
or custom. Step 2 takes the address, name, description, tags and, for
custom contracts, the ABI JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := contractRegistry()
		if err != nil {
			return err
		}
		val, err := abi.NewValidator(cfg.ABICacheSize)
		if err != nil {
			return err
		}
		l, closeLog, err := wizardLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		w := wizard.NewAddContract(wizard.Deps{Registry: reg, Validator: val, Logger: l})
		addr, err := ui.RunWizard(cmd.Context(), w)
		if errors.Is(err, ui.ErrAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Contract added: "+ui.Addr(addr)))
		return nil
	},
}

// ── contract deploy ───────────────────────────────────────────────────────────

var contractDeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a contract",
	Long: `Open the deploy wizard.

Step 1 takes the name, the ABI (a JSON array or solc --combined-json
output) and the creation bytecode. Step 2 fills the constructor arguments.
Step 3 shows a summary and the gas estimate before sending.

After the receipt arrives the new contract is added to the watch list
unless --no-register is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		w := wizard.NewDeploy(sess.from, sess.deps)
		hash, err := ui.RunWizard(ctx, w)
		if errors.Is(err, ui.ErrAborted) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success("Deployment sent: "+ui.Addr(hash)))

		receipt, err := waitForReceipt(cmd, sess.client, hash, config.TxDeployTimeout)
		if err != nil {
			return err
		}
		if receipt.ContractAddress == "" {
			return fmt.Errorf("receipt for %s has no contract address", hash)
		}
		printReceipt(out, receipt)

		if deployNoRegister {
			return nil
		}
		entry := w.Entry(receipt.ContractAddress)
		if err := sess.registry.Add(entry); err != nil {
			return err
		}
		if err := sess.registry.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s added to the watch list", entry.Name)))
		return nil
	},
}

// ── contract exec ─────────────────────────────────────────────────────────────

var contractExecCmd = &cobra.Command{
	Use:   "exec <contract>",
	Short: "Call a state-changing function",
	Long: `Open the execute wizard for a watch-list contract, by name or address.

Pick a function (type to filter), fill its arguments and, for payable
functions, the ETH amount. Read-only functions are not listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		entry, err := sess.registry.Get(args[0])
		if err != nil {
			return err
		}
		w, err := wizard.NewExecute(*entry, sess.from, sess.deps)
		if err != nil {
			return err
		}
		hash, err := ui.RunWizard(ctx, w)
		if errors.Is(err, ui.ErrAborted) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success("Transaction sent: "+ui.Addr(hash)))
		if execNoWait {
			return nil
		}
		receipt, err := waitForReceipt(cmd, sess.client, hash, config.TxConfirmTimeout)
		if err != nil {
			return err
		}
		printReceipt(out, receipt)
		return nil
	},
}

func waitForReceipt(cmd *cobra.Command, client *chain.Client, hash string, timeout time.Duration) (*chain.TxReceipt, error) {
	sp := ui.NewSpinner(cmd.ErrOrStderr(), "Waiting for receipt…")
	sp.Start()
	receipt, err := client.WaitForReceipt(cmd.Context(), hash, timeout)
	sp.Stop()
	return receipt, err
}

func printReceipt(out io.Writer, r *chain.TxReceipt) {
	pairs := [][2]string{
		{"Hash", r.Hash},
		{"Block", strconv.FormatUint(r.BlockNumber, 10)},
		{"Gas used", strconv.FormatUint(r.GasUsed, 10)},
	}
	if r.ContractAddress != "" {
		pairs = append(pairs, [2]string{"Contract", r.ContractAddress})
	}
	fmt.Fprintln(out, ui.KeyValueBlock("Receipt", pairs))
}

// ── contract list / show / remove ─────────────────────────────────────────────

var contractListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watch-list contracts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := contractRegistry()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		all := reg.All()
		if len(all) == 0 {
			fmt.Fprintln(out, ui.Info("No contracts on the watch list yet."))
			fmt.Fprintln(out, ui.Hint("Add one with: w3wizard contract add"))
			return nil
		}
		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Kind", Width: 10},
			{Title: "Tags", Width: 20},
		})
		for _, c := range all {
			t.AddRow(ui.Row{c.Name, c.Address, c.Kind, strings.Join(c.Tags, ",")})
		}
		fmt.Fprint(out, t.Render())
		return nil
	},
}

var contractShowCmd = &cobra.Command{
	Use:   "show <contract>",
	Short: "Show a watch-list contract and its functions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := contractRegistry()
		if err != nil {
			return err
		}
		c, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock(c.Name, [][2]string{
			{"Address", c.Address},
			{"Kind", c.Kind},
			{"Description", c.Description},
			{"Tags", strings.Join(c.Tags, ", ")},
			{"Added", c.AddedAt},
		}))
		for _, e := range c.ABI {
			if e.Type != abi.KindFunction {
				continue
			}
			mark := ui.Meta("write")
			switch {
			case e.IsConstant():
				mark = ui.Meta("read ")
			case e.IsPayable():
				mark = ui.StyleWarning.Render("pay  ")
			}
			fmt.Fprintf(out, "  %s  %s\n", mark, e.Label())
		}
		return nil
	},
}

var contractRemoveCmd = &cobra.Command{
	Use:   "remove <contract>",
	Short: "Remove a contract from the watch list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := contractRegistry()
		if err != nil {
			return err
		}
		c, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !removeYes && !ui.ConfirmDanger(cmd.InOrStdin(), out, fmt.Sprintf("Remove %s (%s)?", c.Name, c.Address)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err := reg.Remove(c.Address); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Removed %s", c.Name)))
		return nil
	},
}

// ── contract builtins ─────────────────────────────────────────────────────────

var contractBuiltinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List the bundled ABI types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := ui.NewTable([]ui.Column{
			{Title: "ID", Width: 10},
			{Title: "Name", Width: 16},
			{Title: "Functions", Width: 9},
			{Title: "Description", Width: 44},
		})
		for _, b := range contract.AllBuiltins() {
			n := 0
			for _, e := range b.ABI {
				if e.Type == abi.KindFunction {
					n++
				}
			}
			t.AddRow(ui.Row{b.ID, b.Name, strconv.Itoa(n), b.Description})
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

func init() {
	contractDeployCmd.Flags().BoolVar(&deployNoRegister, "no-register", false, "do not add the deployed contract to the watch list")
	contractExecCmd.Flags().BoolVar(&execNoWait, "no-wait", false, "return once the transaction is sent")
	contractRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip confirmation")

	for _, c := range []*cobra.Command{contractDeployCmd, contractExecCmd} {
		c.Flags().StringVar(&fromFlag, "from", "", "sending account, by name or address")
	}

	contractCmd.AddCommand(
		contractAddCmd,
		contractDeployCmd,
		contractExecCmd,
		contractListCmd,
		contractShowCmd,
		contractRemoveCmd,
		contractBuiltinsCmd,
	)
}
