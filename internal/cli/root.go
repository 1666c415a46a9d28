// Package cli wires the chatterm command line: configuration, login, and
// launching the TUI session.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newguy103/chatterm/internal/api"
	"github.com/newguy103/chatterm/internal/chat"
	"github.com/newguy103/chatterm/internal/config"
	"github.com/newguy103/chatterm/internal/logging"
	"github.com/newguy103/chatterm/internal/tui"
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	var (
		configFile string
		serverURL  string
		username   string
		logLevel   string
		logFile    string
	)

	cmd := &cobra.Command{
		Use:           "chatterm",
		Short:         "Terminal client for the chatinterface chat server",
		Long:          "chatterm logs into a chatinterface server and keeps your conversations synchronized in a terminal UI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, serverURL, logLevel, logFile)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, username, version)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file path")
	cmd.Flags().StringVarP(&serverURL, "server", "s", "", "Server base URL (overrides config)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to login as")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (logging is silenced without one)")

	return cmd
}

func loadConfig(configFile, serverURL, logLevel, logFile string) (*config.Config, error) {
	loader := config.NewLoader()
	if configFile != "" {
		loader.SetConfigFile(configFile)
	}
	// CLI flags take precedence over file and environment.
	if serverURL != "" {
		loader.Set("server.url", serverURL)
	}
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}
	if logFile != "" {
		loader.Set("logging.file", logFile)
	}
	return loader.Load()
}

func runSession(ctx context.Context, cfg *config.Config, username, version string) error {
	if cfg.Logging.File != "" {
		if err := logging.Init(logging.Config{
			Level:        cfg.Logging.Level,
			Format:       cfg.Logging.Format,
			File:         cfg.Logging.File,
			EnableCaller: cfg.Logging.EnableCaller,
		}); err != nil {
			return err
		}
	} else {
		// The TUI owns the terminal; without a file, drop log output.
		logging.Discard()
	}

	client, err := api.NewClient(cfg.Server.URL, api.WithTimeout(cfg.Server.Timeout))
	if err != nil {
		return err
	}

	session, err := login(ctx, client, username)
	if err != nil {
		return err
	}

	farewell, err := tui.Run(tui.Config{
		Client:         client,
		Session:        session,
		FetchLimit:     cfg.Chat.FetchLimit,
		Keepalive:      cfg.Chat.KeepaliveInterval,
		Theme:          cfg.TUI.Theme,
		ShowTimestamps: cfg.TUI.ShowTimestamps,
		Version:        version,
	})
	if err != nil {
		return err
	}
	if farewell != "" {
		fmt.Println(farewell)
	}
	return nil
}

// login authenticates and returns the confirmed session identity. An
// existing username flag skips the prompt but never the password read.
func login(ctx context.Context, client *api.Client, username string) (chat.SessionInfo, error) {
	reader := bufio.NewReader(os.Stdin)

	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return chat.SessionInfo{}, fmt.Errorf("read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if err := chat.ValidateUsername(username); err != nil {
		return chat.SessionInfo{}, err
	}

	password, err := readPassword(reader)
	if err != nil {
		return chat.SessionInfo{}, err
	}

	if err := client.Login(ctx, username, password); err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			return chat.SessionInfo{}, errors.New("incorrect username or password")
		}
		return chat.SessionInfo{}, err
	}

	infoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	session, err := client.SessionInfo(infoCtx)
	if err != nil {
		return chat.SessionInfo{}, err
	}
	return session, nil
}

// readPassword reads without echo when stdin is a terminal, falling back
// to a plain line read for piped input.
func readPassword(reader *bufio.Reader) (string, error) {
	fmt.Print("Password: ")
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
