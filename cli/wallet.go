package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyltr/walletd/api"
	"github.com/fyltr/walletd/internal/objectstore"
	"github.com/fyltr/walletd/internal/wallet"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallet entries",
	Long: `Manage the named entries of the configured wallet container.

Examples:
  walletd wallet list
  walletd wallet add alice '{"name":"alice",...}'
  walletd wallet get alice --reveal
  walletd wallet update alice - < identity.json
  walletd wallet remove alice`,
}

var walletReveal bool

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entry names",
	Args:  cobra.NoArgs,
	RunE:  runWalletList,
}

var walletGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print an entry (masked unless --reveal)",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalletGet,
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> <value|->",
	Short: "Add a new entry; fails if it exists",
	Args:  cobra.ExactArgs(2),
	RunE:  runWalletAdd,
}

var walletUpdateCmd = &cobra.Command{
	Use:   "update <name> <value|->",
	Short: "Replace an existing entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runWalletUpdate,
}

var walletRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Short:   "Remove an entry",
	Aliases: []string{"rm", "delete"},
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletRemove,
}

func init() {
	walletGetCmd.Flags().BoolVar(&walletReveal, "reveal", false, "Print the value unmasked")
	walletCmd.AddCommand(walletListCmd, walletGetCmd, walletAddCmd, walletUpdateCmd, walletRemoveCmd)
}

// openWallet builds the configured wallet. Ledger settings are not required.
func openWallet(cmd *cobra.Command) (wallet.Wallet, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return wallet.New(cfg, httpClient(cfg), newLogger(cmd.ErrOrStderr()))
}

func walletContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

// value returns arg, or stdin when arg is "-".
func value(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading value from stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// mask keeps the first and last four characters of values longer than eight.
func mask(v string) string {
	r := []rune(v)
	if len(r) > 8 {
		return string(r[:4]) + strings.Repeat("*", len(r)-8) + string(r[len(r)-4:])
	}
	return strings.Repeat("*", len(r))
}

// storeErr adds a hint when the object store reports the container missing.
func storeErr(err error) error {
	if objectstore.IsNotFound(err) {
		return fmt.Errorf("wallet container not found in object storage: %w", err)
	}
	return err
}

func runWalletList(cmd *cobra.Command, args []string) error {
	w, err := openWallet(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := walletContext(cmd)
	defer cancel()

	names, err := w.List(ctx)
	if err != nil {
		return storeErr(err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		if names == nil {
			names = []string{}
		}
		return json.NewEncoder(out).Encode(api.WalletList{Backend: w.Type(), Names: names})
	}

	if len(names) == 0 {
		printInfo(out, "No entries stored.")
		return nil
	}

	printHeader(out, fmt.Sprintf("Wallet entries (%s backend)", w.Type()))
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}

func runWalletGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	w, err := openWallet(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := walletContext(cmd)
	defer cancel()

	val, err := w.Get(ctx, name)
	if err != nil {
		return storeErr(err)
	}

	shown := val
	if !walletReveal {
		shown = mask(val)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return json.NewEncoder(out).Encode(api.WalletEntry{Name: name, Value: shown, Length: len(val)})
	}
	fmt.Fprintf(out, "  %s = %s\n", name, shown)
	return nil
}

func runWalletAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	val, err := value(cmd, args[1])
	if err != nil {
		return err
	}
	w, err := openWallet(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := walletContext(cmd)
	defer cancel()

	if err := w.Add(ctx, name, val); err != nil {
		return storeErr(err)
	}
	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Added %s (%s backend)", name, w.Type()))
	return nil
}

func runWalletUpdate(cmd *cobra.Command, args []string) error {
	name := args[0]
	val, err := value(cmd, args[1])
	if err != nil {
		return err
	}
	w, err := openWallet(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := walletContext(cmd)
	defer cancel()

	if err := w.Update(ctx, name, val); err != nil {
		return storeErr(err)
	}
	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Updated %s", name))
	return nil
}

func runWalletRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	w, err := openWallet(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := walletContext(cmd)
	defer cancel()

	if err := w.Remove(ctx, name); err != nil {
		return storeErr(err)
	}
	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed %s", name))
	return nil
}
