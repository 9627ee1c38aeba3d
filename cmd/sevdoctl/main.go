// Command sevdoctl is a small CLI for the Sevdo user API, mostly useful
// for poking at a deployment and for exercising the client library.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	client "github.com/sevdo/user-api-go-client"
	"github.com/sevdo/user-api-go-client/kvstore"
)

var (
	cfgPath  string
	baseURL  string
	storeDir string
	isDebug  bool

	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:               "sevdoctl",
	Short:             "Sevdo user API client",
	Long:              `sevdoctl talks to a Sevdo user API deployment: login, profile, sessions.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (default $SEVDO_API_URL)")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "session store directory (default ~/.sevdoctl)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(loginCmd, registerCmd, meCmd, logoutCmd, sessionsCmd, revokeCmd)

	registerCmd.Flags().String("first-name", "", "first name")
	registerCmd.Flags().String("last-name", "", "last name")
}

func setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if isDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	opts := []client.Option{
		client.WithRequestLogger(client.NewSlogLogger(logger)),
		client.WithRequestInterceptor(client.RequestIDInterceptor()),
		client.WithUnauthorizedHandler(func(endpoint string) {
			logger.Warn("session expired, please log in again", "endpoint", endpoint)
		}),
	}

	if cfgPath != "" {
		cfg, err := client.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		opts = append(opts, cfg.ClientOptions()...)
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
	}

	if baseURL == "" {
		baseURL = os.Getenv("SEVDO_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	if storeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		storeDir = filepath.Join(home, ".sevdoctl")
	}

	kv, err := kvstore.NewFS(storeDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	opts = append(opts, client.WithSession(client.NewSession(kv)))

	api = client.New(baseURL, opts...)
	return api.Connect(cmd.Context())
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := api.Login(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		slog.Info("logged in", "expires_in", token.ExpiresIn)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email> <password>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")

		user, err := api.Register(cmd.Context(), &client.RegisterRequest{
			FirstName:       firstName,
			LastName:        lastName,
			Email:           args[0],
			Password:        args[1],
			ConfirmPassword: args[1],
		})
		if err != nil {
			return err
		}
		return printJSON(user)
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, err := api.Me(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(user)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return api.Logout(cmd.Context())
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List active sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sessions, err := api.Sessions(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(sessions)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <session-id>",
	Short: "Revoke a session by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		msg, err := api.RevokeSession(cmd.Context(), id)
		if err != nil {
			return err
		}
		slog.Info(msg.Message)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
