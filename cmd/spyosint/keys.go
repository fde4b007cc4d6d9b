package main

import (
	"context"
	"fmt"
	"spyosint/internal/config"
	"spyosint/internal/credentials"
	"spyosint/internal/models"
	"strings"

	"github.com/spf13/cobra"
)

var (
	keysToFile   bool
	keysFilePath string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys in the user credential store",
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider> <secret>",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeys(cmd, func(ctx context.Context, a *app) error {
			p, err := keyedProvider(args[0])
			if err != nil {
				return err
			}
			secret := strings.TrimSpace(args[1])
			if secret == "" {
				return fmt.Errorf("secret is required")
			}
			if keysToFile {
				keys, err := config.LoadKeyFile()
				if err != nil {
					return err
				}
				keys.SetSecret(p, secret)
				if err := config.SaveKeyFile(keys, keysFilePath); err != nil {
					return err
				}
				fmt.Printf("[+] %s key saved to the key file (%s)\n", p, credentials.Mask(secret))
				return nil
			}
			if err := a.userKeys.Set(ctx, string(p), secret); err != nil {
				return err
			}
			fmt.Printf("[+] %s key stored (%s)\n", p, credentials.Mask(secret))
			return nil
		})
	},
}

var keysGetCmd = &cobra.Command{
	Use:   "get [provider]",
	Short: "Show which keys are configured (masked)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeys(cmd, func(ctx context.Context, a *app) error {
			providers := keyedProviders
			if len(args) == 1 {
				p, err := keyedProvider(args[0])
				if err != nil {
					return err
				}
				providers = []models.ProviderID{p}
			}
			for _, p := range providers {
				if secret, ok, err := a.userKeys.Get(ctx, string(p)); err != nil {
					return err
				} else if ok && secret != "" {
					fmt.Printf("[+] %s: %s (user)\n", p, credentials.Mask(secret))
					continue
				}
				if secret, ok, _ := a.serverKeys.Get(ctx, string(p)); ok {
					fmt.Printf("[+] %s: %s (server)\n", p, credentials.Mask(secret))
					continue
				}
				fmt.Printf("[!] %s: not configured\n", p)
			}
			return nil
		})
	},
}

var keysClearCmd = &cobra.Command{
	Use:   "clear <provider>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeys(cmd, func(ctx context.Context, a *app) error {
			p, err := keyedProvider(args[0])
			if err != nil {
				return err
			}
			if err := a.userKeys.Clear(ctx, string(p)); err != nil {
				return err
			}
			fmt.Printf("[+] %s key cleared\n", p)
			return nil
		})
	},
}

var keyedProviders = []models.ProviderID{
	models.ProviderVirusTotal,
	models.ProviderShodan,
	models.ProviderOpenRouter,
}

func keyedProvider(name string) (models.ProviderID, error) {
	p := models.ProviderID(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range keyedProviders {
		if k == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (expected virustotal, shodan or openrouter)", name)
}

func withKeys(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func init() {
	keysSetCmd.Flags().BoolVar(&keysToFile, "server", false, "write to the server key file instead of the user credential store")
	keysSetCmd.Flags().StringVar(&keysFilePath, "key-file", "", "key file path (default ./config.json)")

	keysCmd.AddCommand(keysSetCmd, keysGetCmd, keysClearCmd)
}
