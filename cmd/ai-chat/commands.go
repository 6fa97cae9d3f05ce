package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/iamvkosarev/ai-chat-client/internal/app"
	"github.com/iamvkosarev/ai-chat-client/internal/logger"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cfg        *config.Config
	logCloser  io.Closer
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "ai-chat",
		Short:        "Chat with an AI assistant from the terminal or Telegram",
		SilenceUsage: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.logCloser != nil {
				return opts.logCloser.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	chat := newChatCommand(opts)
	root.RunE = chat.RunE
	root.Flags().AddFlagSet(chat.Flags())

	root.AddCommand(
		chat,
		newSignupCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newTelegramCommand(opts),
	)
	return root
}

// load reads the config and installs the logger. Terminal UI runs log to a
// file so output does not corrupt the screen.
func (o *rootOptions) load(logToFile bool) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if logToFile && cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(os.TempDir(), "ai-chat.log")
	}
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logCloser = closer
	return nil
}

func (o *rootOptions) withApp(ctx context.Context, logToFile bool, fn func(a *app.App) error) error {
	if err := o.load(logToFile); err != nil {
		return err
	}
	a, err := app.New(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newChatCommand(opts *rootOptions) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return opts.withApp(
				ctx, true, func(a *app.App) error {
					user, err := resolveChatUser(ctx, a, email, name)
					if err != nil {
						return err
					}
					return a.RunTUI(ctx, user)
				},
			)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "log in as this email before chatting")
	cmd.Flags().StringVar(&name, "name", "", "sign up with this name when the email is unknown")
	return cmd
}

// resolveChatUser logs in with the given email, signing up when a name is
// set and the user is unknown. Without an email the stored session is used.
func resolveChatUser(ctx context.Context, a *app.App, email, name string) (model.User, error) {
	if email == "" {
		user, err := a.Users().RequireSession(ctx)
		if err != nil {
			return model.User{}, errors.Wrap(err, "run signup or login first, or pass --email")
		}
		return user, nil
	}
	user, err := a.Users().Login(ctx, email)
	if errors.Is(err, model.ErrUserDoesNotExists) && name != "" {
		return a.Users().Signup(ctx, email, name)
	}
	return user, err
}

func newSignupCommand(opts *rootOptions) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a user and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(
				cmd.Context(), false, func(a *app.App) error {
					user, err := a.Users().Signup(cmd.Context(), email, name)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s <%s>\n", user.DisplayName(), user.Email)
					return nil
				},
			)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with an existing email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(
				cmd.Context(), false, func(a *app.App) error {
					user, err := a.Users().Login(cmd.Context(), email)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName())
					return nil
				},
			)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(
				cmd.Context(), false, func(a *app.App) error {
					if err := a.Users().Logout(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
					return nil
				},
			)
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(
				cmd.Context(), false, func(a *app.App) error {
					user, err := a.Users().RequireSession(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", user.DisplayName(), user.Email, user.UserID)
					return nil
				},
			)
		},
	}
}

func newTelegramCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Serve the chat as a Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(
				cmd.Context(), false, func(a *app.App) error {
					return a.RunTelegram(cmd.Context())
				},
			)
		},
	}
}
