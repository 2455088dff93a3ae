package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/cli"
	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Login, logout, and check authentication status for the skilldex CLI",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

func AuthLoginCmd() *cobra.Command {
	var token, apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token",
		Long:  "Store the API token and URL in the global config (~/.config/skilldex/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.InOrStdin(), cmd.OutOrStdout(), token, apiURL)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token (prompted when omitted)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where credentials come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagToken, _ := cmd.Flags().GetString("api-token")
			flagURL, _ := cmd.Flags().GetString("api-url")
			return runAuthStatus(cmd.OutOrStdout(), flagToken, flagURL, jsonOutput(cmd))
		},
	}
}

func runAuthLogin(in io.Reader, out io.Writer, token, apiURL string) error {
	if token == "" {
		fmt.Fprint(out, "Enter API token: ")
		input, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && input == "" {
			return fmt.Errorf("failed to read API token: %w", err)
		}
		token = strings.TrimSpace(input)
	}

	if token == "" {
		return fmt.Errorf("API token cannot be empty")
	}
	if _, err := NewAPIClientWithConfig(token, apiURL); err != nil {
		return err
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIToken: token, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Successfully logged in")
	return nil
}

func runAuthStatus(out io.Writer, flagToken, flagURL string, asJSON bool) error {
	source, token, apiURL := GetCredentialSource(flagToken, flagURL)

	if asJSON {
		status := map[string]any{
			"authenticated": source != SourceNone,
			"source":        string(source),
		}
		if source != SourceNone {
			status["api_token"] = maskToken(token)
			status["api_url"] = apiURL
		}
		return cli.PrintJSON(out, status)
	}

	if source == SourceNone {
		fmt.Fprintln(out, "Not authenticated")
		fmt.Fprintln(out, "Run 'skilldex auth login' if the server requires a token")
		return nil
	}

	fmt.Fprintf(out, "Authenticated: yes\n")
	fmt.Fprintf(out, "Source: %s\n", source)
	fmt.Fprintf(out, "API Token: %s\n", maskToken(token))
	fmt.Fprintf(out, "API URL: %s\n", apiURL)
	return nil
}

func maskToken(token string) string {
	if len(token) < 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
