// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// memory_cmd.go - Backend memory management for the gamesage CLI.
//
// Command: memory clear [function]
// Short:   Clear the backend's conversation memory
//
// Without a function every mode's memory is cleared; with one, only
// that mode's.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/model"
)

// HandleMemory handles the "memory" command and exits with an appropriate code.
func HandleMemory(args Args) {
	if err := runMemoryCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runMemoryCommand(args Args) error {
	if args.Subcommand != "clear" {
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"unknown memory subcommand", "gamesage memory clear [function]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := newBackendClient(args)

	var result *backend.MemoryResult
	var err error
	if args.Function == "" {
		result, err = client.ClearMemory(ctx)
	} else {
		info, ok := model.LookupFunction(args.Function)
		if !ok {
			return NewValidationErrorWithExample("function", args.Function,
				"unknown assistant mode", "gamesage memory clear play")
		}
		result, err = client.ClearMemoryFor(ctx, info.ID)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(result)
	}
	fmt.Printf("%s %s\n", SuccessStyle.Render("[OK]"), result.Message)
	return nil
}
