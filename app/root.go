// Package app implements the main application commands.
package app

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "oidcfiber",
	Short: "oidcfiber is an OpenID Connect relying party for fiber applications",
	Long: `oidcfiber runs a fiber web service protected by the oidcauth middleware.
It logs users in against an OpenID Connect provider with the authorization
code flow and PKCE, keeps the session in cookies and guards routes by
entitlements.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Path to the directory holding main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
