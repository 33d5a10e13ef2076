// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for gamesage.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdChats
	CmdGames
	CmdConfig
	CmdUpload
	CmdMemory
	CmdLogin
	CmdRegister
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	JSON     bool   // Output in JSON format
	NoPacing bool   // Disable typing simulation for streamed output
	Function string // Assistant mode override (--function)
	URL      string // Backend URL override (--url)

	// Command-specific
	Query      string
	File       string
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `gamesage - game-collection-aware chat assistant

Gamesage is a terminal client for the GameSage backend. It streams
responses with typewriter pacing, keeps saved chats in a local SQLite
database, and folds your game collection into recommendation requests.

Usage:
  gamesage                     Start TUI (default)
  gamesage ask "question"      Ask a single question
  gamesage chat                Interactive chat REPL
  gamesage chats [subcommand]  Saved chat management
  gamesage games [subcommand]  Game collection management
  gamesage config [show|set]   Configuration
  gamesage upload FILE         Upload a document for Q&A
  gamesage memory clear [FN]   Clear backend conversation memory
  gamesage login [USER]        Log in to the backend
  gamesage register [USER]     Create a backend account
  gamesage status              Show client status

Assistant modes (--function, /function in chat):
  general      General chat (default)
  play         What to play next, collection-aware
  game_guide   Walkthroughs and strategy help
  doc_qa       Q&A over uploaded documents
  game_wiki    Game facts and trivia

Chat commands (inside gamesage chat):
  /help                Show available commands
  /function [name]     Show or switch assistant mode
  /new                 Start a fresh conversation (saves current)
  /load <id>           Resume a saved chat
  /history             Show conversation history
  /clear               Clear local conversation history
  /clear-memory [fn]   Clear backend memory (one mode or all)
  /upload <file>       Upload a document for doc_qa
  /login [user]        Log in to the backend
  /config [key val]    Show or set configuration
  /status              Show session status
  /quit                Exit chat
  Ctrl+C               Cancel the current response
  Ctrl+D               Exit chat

Saved chat commands:
  gamesage chats list               List saved chats
  gamesage chats search <query>     Search chats by content
  gamesage chats show <id>          Print a saved chat
  gamesage chats export <id>        Export a chat as Markdown
    --output FILE                   Write to file (default: stdout)
  gamesage chats delete <id>        Delete a saved chat

Game collection commands:
  gamesage games list               List the collection
  gamesage games add <name>         Add or update a game
    --genres a,b --platform PC --rating 9.0 --status playing --notes TEXT
  gamesage games remove <name>      Remove a game
  gamesage games status <name> <playStatus>
                                    Update play status (backlog/playing/
                                    completed/dropped)

Global flags:
  --function NAME Assistant mode for ask/upload/memory
  --url URL       Backend base URL (overrides config)
  --no-pacing     Print streamed output immediately
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --json          Output in JSON format

Examples:
  gamesage ask "What should I play this weekend?" --function play
  gamesage ask "How do I beat Malenia?" --function game_guide
  gamesage upload rulebook.pdf
  gamesage ask "Summarize chapter 3" --function doc_qa
  gamesage games add "Hades" --genres roguelike,action --rating 9.5
  gamesage chats search "elden ring"
  gamesage config set pacing.disabled true

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("gamesage version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "chats", "history":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdChats, parsedArgs

	case "games", "collection":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdGames, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "upload":
		if len(remaining) > 0 {
			parsedArgs.File = remaining[0]
		}
		return CmdUpload, parsedArgs

	case "memory":
		parseMemoryArgs(&parsedArgs, remaining)
		return CmdMemory, parsedArgs

	case "login":
		if len(remaining) > 0 {
			parsedArgs.Query = remaining[0]
		}
		return CmdLogin, parsedArgs

	case "register":
		if len(remaining) > 0 {
			parsedArgs.Query = remaining[0]
		}
		return CmdRegister, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command - treat as a direct question.
		parsedArgs.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--no-pacing":
			parsedArgs.NoPacing = true
		case "--function", "-f":
			if i+1 < len(args) {
				i++
				parsedArgs.Function = args[i]
			}
		case "--url":
			if i+1 < len(args) {
				i++
				parsedArgs.URL = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--function="):
				parsedArgs.Function = strings.TrimPrefix(arg, "--function=")
			case strings.HasPrefix(arg, "--url="):
				parsedArgs.URL = strings.TrimPrefix(arg, "--url=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		default:
			if strings.HasPrefix(arg, "--file=") {
				args.File = strings.TrimPrefix(arg, "--file=")
			} else if !strings.HasPrefix(arg, "-") {
				query = append(query, arg)
			}
		}
	}

	args.Query = strings.Join(query, " ")
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// parseMemoryArgs parses memory command specific arguments.
func parseMemoryArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		// "memory clear <function>" names one mode to clear.
		if len(remaining) > 1 {
			args.Function = remaining[1]
		}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) {
	if err := HandleAskCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	if err := HandleChatCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		outputJSON(map[string]string{
			"version":    Version,
			"git_commit": GitCommit,
			"build_date": BuildDate,
		})
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
