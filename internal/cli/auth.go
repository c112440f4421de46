package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"edujourney/internal/api"
	"edujourney/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long:  "Sign in and remember the session. Without --password the password is read from the first line of stdin.",
		RunE:  runLogin,
	}
	login.Flags().StringP("email", "e", "", "Account email")
	login.Flags().StringP("password", "p", "", "Account password")

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify an email address with the code that was sent",
		RunE:  runVerify,
	}
	verify.Flags().StringP("email", "e", "", "Account email")
	verify.Flags().String("code", "", "Six digit code")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE:  runLogout,
	}

	RootCmd.AddCommand(login, verify, logout)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return api.ErrMissingCredentials
		}
		password = strings.TrimRight(line, "\r\n")
	}
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		user, err := h.Login(ctx, strings.TrimSpace(email), password)
		if err != nil {
			return commandError("login", err, "Login failed")
		}
		return printUser(cmd, user)
	})
}

func runVerify(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	code, _ := cmd.Flags().GetString("code")
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		user, err := h.Verify(ctx, strings.TrimSpace(email), strings.TrimSpace(code))
		if err != nil {
			return commandError("verify", err, "Invalid OTP code")
		}
		return printUser(cmd, user)
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withHeadless(cmd, func(ctx context.Context, h *app.Headless) error {
		if err := h.Logout(ctx); err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true})
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return err
	})
}

func printUser(cmd *cobra.Command, user api.User) error {
	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), user)
	}
	next := "open `edujourney` to continue your journey"
	if !user.ProfileComplete {
		next = "open `edujourney` to finish your profile"
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s; %s.\n", user.DisplayName(), next)
	return err
}
