// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Authentication commands for the gamesage CLI.
//
// Commands: login [username], register [username]
//
// On success the user ID is persisted to the config file so later
// commands send it; passwords are never stored.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/config"
)

// authTimeout bounds login and register calls.
const authTimeout = 15 * time.Second

// HandleLogin handles the "login" command and exits with an appropriate code.
func HandleLogin(args Args) {
	if err := runAuthCommand(args, false); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

// HandleRegister handles the "register" command and exits with an
// appropriate code.
func HandleRegister(args Args) {
	if err := runAuthCommand(args, true); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runAuthCommand(args Args, register bool) error {
	username := strings.TrimSpace(args.Query)
	if username == "" {
		username = promptInput("Username: ")
	}
	if username == "" {
		return ErrMissingArgument("username", "gamesage login <username>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return NewValidationError("password", "", "cannot be empty")
	}

	if register {
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return NewValidationError("password", "", "passwords do not match")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	client := newBackendClient(args)

	var result *backend.AuthResult
	if register {
		result, err = client.Register(ctx, username, password)
	} else {
		result, err = client.Login(ctx, username, password)
	}
	if err != nil {
		return err
	}
	if !result.Success {
		verb := "login"
		if register {
			verb = "registration"
		}
		return fmt.Errorf("%s failed: %s", verb, result.Message)
	}

	// Remember the user so future commands scope memory and chats to them.
	cfg := config.Global()
	cfg.Backend.UserID = result.UserID
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s could not persist user ID: %v\n",
			WarningStyle.Render("[Warning]"), err)
	}

	if args.JSON {
		return outputJSON(result)
	}
	if register {
		fmt.Printf("%s Registered and logged in as %s\n",
			SuccessStyle.Render("[OK]"), result.UserID)
	} else {
		fmt.Printf("%s Logged in as %s\n",
			SuccessStyle.Render("[OK]"), result.UserID)
	}
	return nil
}

// readPassword reads a password from the terminal without echo.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
