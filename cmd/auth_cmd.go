package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goreact/internal/config"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the provider API key in the OS keyring",
	}
	cmd.AddCommand(authSetCmd(), authDeleteCmd())
	return cmd
}

func authSetCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = resolveProvider(provider)
			key, err := promptPassword("API key for "+provider, "Stored in the OS keyring, never written to the config file.")
			if err != nil {
				return err
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("no key entered")
			}
			if err := config.StoreAPIKey(provider, key); err != nil {
				return fmt.Errorf("%w (is an OS keyring available? otherwise set provider.api_key or GOREACT_API_KEY)", err)
			}
			fmt.Printf("API key for %s saved.\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name (default from config)")
	return cmd
}

func authDeleteCmd() *cobra.Command {
	var (
		provider string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = resolveProvider(provider)
			if !yes {
				ok, err := promptConfirm("Delete the stored API key for "+provider+"?", false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Cancelled.")
					return nil
				}
			}
			if err := config.DeleteAPIKey(provider); err != nil {
				return err
			}
			fmt.Printf("API key for %s deleted.\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider name (default from config)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// resolveProvider falls back to the configured provider, then to the default.
func resolveProvider(name string) string {
	if name != "" {
		return config.NormalizeProviderName(name)
	}
	if cfg, err := config.Load(resolveConfigPath()); err == nil {
		return cfg.Provider.Name
	}
	return config.Default().Provider.Name
}
