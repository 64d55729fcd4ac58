package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"streamtap/internal/config"
	"streamtap/internal/security"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialise the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			fmt.Fprintf(os.Stderr, "# %s\n", a.loader.FilePath())
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(masked(a.cfg))
		})
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := newLoader(configPath)
		if err != nil {
			return err
		}
		if _, err := os.Stat(loader.FilePath()); err == nil {
			return fmt.Errorf("%s already exists", loader.FilePath())
		}
		if err := loader.Save(config.Defaults()); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", loader.FilePath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
}

// masked returns a copy of cfg safe to print.
func masked(cfg *config.Config) config.Config {
	out := *cfg
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = security.MaskKey(out.LLM.APIKey)
	}
	if cfg.FallbackLLM != nil {
		fb := *cfg.FallbackLLM
		if fb.APIKey != "" {
			fb.APIKey = security.MaskKey(fb.APIKey)
		}
		out.FallbackLLM = &fb
	}
	if out.Telegram.Token != "" {
		out.Telegram.Token = security.MaskKey(out.Telegram.Token)
	}
	return out
}
