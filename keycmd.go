package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"streamtap/internal/security"
)

var keyValue string

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage secrets in the OS keychain or encrypted vault",
	Long: fmt.Sprintf(`Secrets are referenced from the config file with the value %q.
Known names: %s, %s, %s.`, security.Placeholder,
		secretNameLLMKey, secretNameFallbackLLMKey, secretNameTelegramToken),
}

var keySetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a secret (read from stdin unless --value is given)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			if a.keys == nil {
				return errors.New("key store unavailable")
			}
			value := keyValue
			if value == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read secret: %w", err)
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return errors.New("empty secret")
			}
			if err := a.keys.Set(args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Stored %s (%s).\n", args[0], security.MaskKey(value))
			return nil
		})
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			if a.keys == nil {
				return errors.New("key store unavailable")
			}
			return a.keys.Delete(args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keySetCmd, keyDeleteCmd)
	keySetCmd.Flags().StringVar(&keyValue, "value", "", "Secret value (visible in shell history)")
}
