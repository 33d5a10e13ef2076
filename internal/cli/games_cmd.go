// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// games_cmd.go - Game collection management for the gamesage CLI.
//
// Command: games
// Short:   Manage the local game collection
//
// Subcommands:
//   list                 List the collection (default)
//   add <name>           Add or update a game
//     --genres a,b       Comma-separated genres
//     --platform <p>     Platform name
//     --rating <n>       Rating 0-10
//     --status <s>       playing | completed | backlog | dropped | wishlist
//     --notes <text>     Free-form notes
//   remove <name>        Remove a game
//   status <name> <s>    Update play status
//
// The collection is sent with recommendation ("play" mode) requests so
// the backend can tailor suggestions to what the user owns.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/storage"
)

// playStatuses are the statuses accepted by "games add --status" and
// "games status".
var playStatuses = []string{"playing", "completed", "backlog", "dropped", "wishlist"}

// HandleGames handles the "games" command and exits with an appropriate code.
func HandleGames(args Args) {
	if err := runGamesCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runGamesCommand(args Args) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return gamesList(store, args)
	case "add":
		return gamesAdd(store, parser)
	case "remove", "rm":
		return gamesRemove(store, parser)
	case "status":
		return gamesStatus(store, parser)
	default:
		return NewValidationErrorWithExample("subcommand", parser.Subcommand(),
			"unknown games subcommand",
			"gamesage games list | add | remove | status")
	}
}

func gamesList(store *storage.Store, args Args) error {
	games, err := store.ListGames()
	if err != nil {
		return err
	}
	if args.JSON {
		return outputJSON(games)
	}
	fmt.Print(storage.FormatGameList(games))
	return nil
}

func gamesAdd(store *storage.Store, parser *ArgParser) error {
	name := strings.Join(parser.PositionalFrom(1), " ")
	if name == "" {
		return ErrMissingArgument("game name",
			`gamesage games add "Elden Ring" --genres rpg,souls-like --rating 9.5`)
	}

	status := parser.FlagOrDefault("status", "backlog")
	if !validPlayStatus(status) {
		return NewValidationErrorWithExample("status", status,
			"unknown play status", strings.Join(playStatuses, " | "))
	}

	rating := parser.FlagFloat("rating")
	if rating < 0 || rating > 10 {
		return NewValidationError("rating", fmt.Sprintf("%g", rating), "must be 0-10")
	}

	game := backend.Game{
		Name:       name,
		Platform:   parser.Flag("platform"),
		Rating:     rating,
		PlayStatus: status,
		Notes:      parser.Flag("notes"),
	}
	if genres := parser.Flag("genres"); genres != "" {
		for _, g := range strings.Split(genres, ",") {
			if g = strings.TrimSpace(g); g != "" {
				game.Genres = append(game.Genres, g)
			}
		}
	}

	if err := store.UpsertGame(game); err != nil {
		return err
	}
	fmt.Printf("%s Saved %s\n", SuccessStyle.Render("[OK]"), HighlightStyle.Render(name))
	return nil
}

func gamesRemove(store *storage.Store, parser *ArgParser) error {
	name := strings.Join(parser.PositionalFrom(1), " ")
	if name == "" {
		return ErrMissingArgument("game name", `gamesage games remove "Elden Ring"`)
	}
	if err := store.RemoveGame(name); err != nil {
		return err
	}
	fmt.Printf("%s Removed %s\n", SuccessStyle.Render("[OK]"), name)
	return nil
}

func gamesStatus(store *storage.Store, parser *ArgParser) error {
	if parser.PositionalCount() < 3 {
		return ErrMissingArgument("game name and status",
			`gamesage games status "Elden Ring" completed`)
	}

	positionals := parser.PositionalFrom(1)
	status := positionals[len(positionals)-1]
	name := strings.Join(positionals[:len(positionals)-1], " ")

	if !validPlayStatus(status) {
		return NewValidationErrorWithExample("status", status,
			"unknown play status", strings.Join(playStatuses, " | "))
	}

	if err := store.UpdateGameStatus(name, status); err != nil {
		return err
	}
	fmt.Printf("%s %s is now %s\n", SuccessStyle.Render("[OK]"),
		name, HighlightStyle.Render(status))
	return nil
}

func validPlayStatus(s string) bool {
	for _, v := range playStatuses {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
