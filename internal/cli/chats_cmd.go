// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats_cmd.go - Saved chat management for the gamesage CLI.
//
// Command: chats
// Short:   List, search, export, and delete saved chats
//
// Subcommands:
//   list              List saved chats (default)
//   search <query>    Search chats by title or content
//   show <id>         Print a saved chat
//   export <id>       Export a chat as Markdown (--output writes a file)
//   delete <id>       Delete a saved chat
//   clear             Delete all saved chats
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gamesage/gamesage-tui/internal/model"
	"github.com/gamesage/gamesage-tui/internal/storage"
	"github.com/gamesage/gamesage-tui/internal/util"
)

// HandleChats handles the "chats" command and exits with an appropriate code.
func HandleChats(args Args) {
	if err := runChatsCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runChatsCommand(args Args) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return chatsList(store, args)
	case "search":
		return chatsSearch(store, parser, args)
	case "show":
		return chatsShow(store, parser)
	case "export":
		return chatsExport(store, parser)
	case "delete", "rm":
		return chatsDelete(store, parser)
	case "clear":
		return chatsClear(store)
	default:
		return NewValidationErrorWithExample("subcommand", parser.Subcommand(),
			"unknown chats subcommand",
			"gamesage chats list | search | show | export | delete | clear")
	}
}

func chatsList(store *storage.Store, args Args) error {
	metas, err := store.ListChats()
	if err != nil {
		return err
	}
	if args.JSON {
		return outputJSON(metas)
	}
	fmt.Print(storage.FormatChatList(metas))
	return nil
}

func chatsSearch(store *storage.Store, parser *ArgParser, args Args) error {
	query := strings.Join(parser.PositionalFrom(1), " ")
	if query == "" {
		return NewValidationErrorWithExample("query", "", "search query required",
			`gamesage chats search "elden ring"`)
	}

	metas, err := store.SearchChats(query)
	if err != nil {
		return err
	}
	if args.JSON {
		return outputJSON(metas)
	}
	if len(metas) == 0 {
		fmt.Printf("No chats matching %q.\n", query)
		return nil
	}
	fmt.Print(storage.FormatChatList(metas))
	return nil
}

func chatsShow(store *storage.Store, parser *ArgParser) error {
	conv, err := loadChatArg(store, parser)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(conv.GetTitle()))
	fmt.Println(RenderSeparator(len(conv.GetTitle())))
	fmt.Printf("%s %s\n", InfoStyle.Render("Mode:"),
		model.FunctionDisplayName(conv.Function))
	fmt.Println()

	for _, msg := range conv.Messages {
		fmt.Printf("%s %s\n",
			HighlightStyle.Render(msg.Role.DisplayName()+":"),
			msg.Content)
		fmt.Println()
	}
	return nil
}

func chatsExport(store *storage.Store, parser *ArgParser) error {
	conv, err := loadChatArg(store, parser)
	if err != nil {
		return err
	}

	md := storage.ExportMarkdown(conv)

	output := parser.Flag("output")
	if output == "" {
		output = parser.Flag("o")
	}
	if output == "" {
		fmt.Print(md)
		return nil
	}

	if err := util.AtomicWriteFile(output, []byte(md), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("%s Exported to %s\n", SuccessStyle.Render("[OK]"), output)
	return nil
}

func chatsDelete(store *storage.Store, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return ErrMissingArgument("chat ID", "gamesage chats delete <id>")
	}

	id, err := resolveChatID(store, id)
	if err != nil {
		return err
	}
	if err := store.DeleteChat(id); err != nil {
		return err
	}
	fmt.Printf("%s Deleted chat %s\n", SuccessStyle.Render("[OK]"), id[:8])
	return nil
}

func chatsClear(store *storage.Store) error {
	if err := store.ClearChats(); err != nil {
		return err
	}
	fmt.Printf("%s All chats deleted\n", SuccessStyle.Render("[OK]"))
	return nil
}

// loadChatArg loads the chat named by the first positional argument,
// accepting ID prefixes from the list view.
func loadChatArg(store *storage.Store, parser *ArgParser) (*model.Conversation, error) {
	id := parser.Positional(1)
	if id == "" {
		return nil, ErrMissingArgument("chat ID", "gamesage chats show <id>")
	}
	id, err := resolveChatID(store, id)
	if err != nil {
		return nil, err
	}
	return store.LoadChat(id)
}

// resolveChatID expands an ID prefix to a full chat ID.
func resolveChatID(store *storage.Store, prefix string) (string, error) {
	metas, err := store.ListChats()
	if err != nil {
		return "", err
	}
	for _, m := range metas {
		if m.ID == prefix || strings.HasPrefix(m.ID, prefix) {
			return m.ID, nil
		}
	}
	return "", storage.ErrChatNotFound
}
