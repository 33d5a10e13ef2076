// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the gamesage CLI.
//
// Handles the "gamesage chat" command which provides an interactive REPL
// conversing with the GameSage backend.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Interactive commands (during chat):
//   /help, /h           Show available commands
//   /function [name]    Show or switch assistant mode
//   /new                Start a fresh conversation (saves current)
//   /load <id>          Resume a saved chat
//   /history            Show conversation history
//   /clear, /c          Clear local conversation history
//   /clear-memory [fn]  Clear backend conversation memory
//   /upload <file>      Upload a document for doc_qa
//   /login [user]       Log in to the backend
//   /config [key val]   Show or set configuration
//   /status, /s         Show session status
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current response
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/config"
	"github.com/gamesage/gamesage-tui/internal/model"
	"github.com/gamesage/gamesage-tui/internal/session"
	"github.com/gamesage/gamesage-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Supports history
// navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Manager *session.Manager
	Client  *backend.Client
	Store   *storage.Store // nil when the database cannot be opened
	Config  *config.Config
	Quiet   bool

	InputCLI *ChatCLI

	// Cancellation for the in-flight stream; guarded for the signal goroutine.
	mu          sync.Mutex
	activeToken *backend.CancelToken
}

// NewChatSession creates a new chat session.
func NewChatSession(args Args) *ChatSession {
	cfg := config.Global()

	fn, err := resolveFunction(args.Function)
	if err != nil {
		fn = backend.FunctionGeneral
	}

	mgr := session.NewManager(session.Config{
		Function:         fn,
		HistoryWindow:    cfg.Storage.HistoryWindow,
		AutoSaveEnabled:  cfg.Storage.SaveChats,
		AutoSaveInterval: 30 * time.Second,
	})

	store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s chat persistence unavailable: %v\n",
			WarningStyle.Render("[Warning]"), err)
		store = nil
	}
	if store != nil {
		mgr.SetAutoSaveCallback(store.SaveChat)
	}

	return &ChatSession{
		Manager:  mgr,
		Client:   newBackendClient(args),
		Store:    store,
		Config:   cfg,
		Quiet:    args.Quiet,
		InputCLI: NewChatCLI(),
	}
}

// setToken records the cancellation token of the in-flight stream.
func (s *ChatSession) setToken(t *backend.CancelToken) {
	s.mu.Lock()
	s.activeToken = t
	s.mu.Unlock()
}

// abortActive cancels the in-flight stream, if any. Safe to call from the
// signal goroutine.
func (s *ChatSession) abortActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeToken == nil {
		return false
	}
	s.activeToken.Abort()
	s.activeToken = nil
	return true
}

// saveCurrent persists the active conversation if it has content.
func (s *ChatSession) saveCurrent() {
	if s.Store == nil || !s.Config.Storage.SaveChats {
		return
	}
	conv := s.Manager.Conversation()
	if conv.IsEmpty() {
		return
	}
	if err := s.Store.SaveChat(conv); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed to save chat: %v\n",
			WarningStyle.Render("[Warning]"), err)
		return
	}
	s.Manager.MarkClean()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	sess := NewChatSession(args)
	defer sess.InputCLI.Close()
	if sess.Store != nil {
		defer sess.Store.Close()
	}

	if !sess.Quiet {
		printWelcome(sess)
	}

	// First Ctrl+C during a stream cancels that stream.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if sess.abortActive() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := sess.InputCLI.ReadInput(promptStyle.Render("gamesage> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D) exits gracefully.
			fmt.Println()
			sess.saveCurrent()
			printExitSummary(sess)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, sess)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				sess.saveCurrent()
				printExitSummary(sess)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			sess.saveCurrent()
			printExitSummary(sess)
			return nil
		}

		if err := processMessage(sess, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}

		sess.Manager.Check()
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends a message to the backend and streams the response.
func processMessage(sess *ChatSession, input string) error {
	sess.Manager.RecordActivity()
	conv := sess.Manager.Conversation()

	fn := sess.Manager.Function()
	req := backend.ChatRequest{
		Message:     input,
		Function:    fn,
		ChatHistory: sess.Manager.History(),
	}
	if fn == backend.FunctionPlay {
		req.GameCollection = loadCollection(sess.Store)
	}

	conv.AddUserMessage(input)
	msg := conv.AddAssistantMessage()
	stats := model.NewStatistics()

	token := backend.NewCancelToken()
	sess.setToken(token)
	defer sess.setToken(nil)

	useMarkdown := markdownEnabled()
	fmt.Println()

	err := sess.Client.ChatStream(context.Background(), req, func(delta string) {
		stats.RecordFirstDelta()
		msg.AppendDelta(delta)
		// When rendering markdown the response is collected and rendered
		// whole at the end; pacing still applies through the callback.
		if !useMarkdown {
			fmt.Print(delta)
		}
	}, token)

	if err != nil {
		conv.DropLastIfEmpty()
		// Keep the user message so a retry has context, but drop the
		// empty assistant placeholder.
		return err
	}

	if token.Aborted() {
		content := msg.GetDisplayContent()
		if content == "" {
			conv.DropLastIfEmpty()
		} else {
			stats.Finalize(len([]rune(content)))
			conv.FinalizeLast(stats)
		}
		sess.Manager.MarkDirty()
		fmt.Println()
		return nil
	}

	content := msg.GetDisplayContent()
	stats.Finalize(len([]rune(content)))
	conv.FinalizeLast(stats)
	sess.Manager.MarkDirty()

	if useMarkdown {
		displayResponse(content)
	}
	fmt.Println()

	if !sess.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s\n", DimStyle.Render("[Stats]"), stats.Format())
	}
	fmt.Println()

	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, sess *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/function", "/f", "/mode":
		return handleFunctionCommand(sess, args)

	case "/new", "/n":
		sess.saveCurrent()
		sess.Manager.StartNew()
		fmt.Println(HighlightStyle.Render("[New conversation]"))
		return true, nil

	case "/load":
		return handleLoadCommand(sess, args)

	case "/history":
		printHistory(sess)
		return true, nil

	case "/clear", "/c":
		sess.Manager.Conversation().ClearHistory()
		sess.Manager.MarkDirty()
		fmt.Println(HighlightStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/clear-memory":
		return handleClearMemoryCommand(sess, args)

	case "/upload":
		return handleUploadSlashCommand(sess, args)

	case "/login":
		return handleLoginSlashCommand(sess, args)

	case "/config":
		return handleConfigSlashCommand(sess, args)

	case "/status", "/s":
		printStatus(sess)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// handleFunctionCommand shows or switches the assistant mode.
func handleFunctionCommand(sess *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		fmt.Println()
		fmt.Println(TitleStyle.Render("Assistant modes"))
		fmt.Print(model.FormatFunctionList(sess.Manager.Function()))
		fmt.Println()
		return true, nil
	}

	info, ok := model.LookupFunction(strings.Join(args, " "))
	if !ok {
		return true, fmt.Errorf("unknown mode %q (try /function to list)", strings.Join(args, " "))
	}

	if err := sess.Manager.SetFunction(info.ID); err != nil {
		return true, err
	}
	fmt.Printf("%s Switched to %s\n",
		SuccessStyle.Render("[OK]"),
		HighlightStyle.Render(info.Name))
	return true, nil
}

// handleLoadCommand resumes a saved chat, listing chats when no ID is given.
func handleLoadCommand(sess *ChatSession, args []string) (bool, error) {
	if sess.Store == nil {
		return true, fmt.Errorf("chat persistence unavailable")
	}

	if len(args) == 0 {
		metas, err := sess.Store.ListChats()
		if err != nil {
			return true, err
		}
		fmt.Println()
		fmt.Print(storage.FormatChatList(metas))
		fmt.Println()
		return true, nil
	}

	// Accept ID prefixes from the truncated list view, resolved the same
	// way as "chats show".
	id, err := resolveChatID(sess.Store, args[0])
	if err != nil {
		return true, err
	}
	conv, err := sess.Store.LoadChat(id)
	if err != nil {
		return true, err
	}

	sess.saveCurrent()
	sess.Manager.Resume(conv)
	fmt.Printf("%s Resumed %q (%d messages)\n",
		SuccessStyle.Render("[OK]"), conv.GetTitle(), conv.MessageCount())
	return true, nil
}

// handleClearMemoryCommand clears backend conversation memory.
func handleClearMemoryCommand(sess *ChatSession, args []string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result *backend.MemoryResult
	var err error
	if len(args) == 0 {
		result, err = sess.Client.ClearMemory(ctx)
	} else {
		info, ok := model.LookupFunction(args[0])
		if !ok {
			return true, fmt.Errorf("unknown mode %q", args[0])
		}
		result, err = sess.Client.ClearMemoryFor(ctx, info.ID)
	}
	if err != nil {
		return true, err
	}

	fmt.Printf("%s %s\n", SuccessStyle.Render("[OK]"), result.Message)
	return true, nil
}

// handleUploadSlashCommand uploads a document for doc_qa.
func handleUploadSlashCommand(sess *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /upload <file>")
	}

	path := strings.Join(args, " ")
	f, err := os.Open(path)
	if err != nil {
		return true, err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := sess.Client.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return true, err
	}

	fmt.Printf("%s Uploaded %s (%d chunks indexed)\n",
		SuccessStyle.Render("[OK]"), result.Filename, result.ChunksCreated)
	fmt.Println(DimStyle.Render("Switch with /function doc_qa to ask about it."))
	return true, nil
}

// handleLoginSlashCommand authenticates against the backend.
func handleLoginSlashCommand(sess *ChatSession, args []string) (bool, error) {
	username := ""
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		username = promptInput("Username: ")
	}
	if username == "" {
		return true, fmt.Errorf("username required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return true, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := sess.Client.Login(ctx, username, password)
	if err != nil {
		return true, err
	}
	if !result.Success {
		return true, fmt.Errorf("login failed: %s", result.Message)
	}

	sess.Client.SetAuth(result.Token, result.UserID)
	fmt.Printf("%s Logged in as %s\n", SuccessStyle.Render("[OK]"), result.UserID)
	return true, nil
}

// handleConfigSlashCommand shows or sets configuration from inside chat.
func handleConfigSlashCommand(sess *ChatSession, args []string) (bool, error) {
	switch len(args) {
	case 0:
		printConfigSummary(sess.Config)
		return true, nil
	case 1:
		val, err := sess.Config.Get(args[0])
		if err != nil {
			return true, err
		}
		fmt.Printf("%s = %v\n", args[0], val)
		return true, nil
	default:
		if err := setConfigValue(args[0], strings.Join(args[1:], " ")); err != nil {
			return true, err
		}
		fmt.Printf("%s %s updated (takes effect on restart or reload)\n",
			SuccessStyle.Render("[OK]"), args[0])
		return true, nil
	}
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(sess *ChatSession) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("gamesage interactive chat"))
	fmt.Println(RenderSeparator(30))
	fmt.Printf("%s %s\n",
		InfoStyle.Render("Backend:"),
		HighlightStyle.Render(sess.Client.BaseURL()))
	fmt.Printf("%s %s\n",
		InfoStyle.Render("Mode:"),
		HighlightStyle.Render(model.FunctionDisplayName(sess.Manager.Function())))
	if sess.Store == nil {
		fmt.Printf("%s %s\n",
			InfoStyle.Render("Chats:"),
			WarningStyle.Render("not persisted"))
	}
	fmt.Println()
	fmt.Println(InfoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printChatHelp prints available commands.
func printChatHelp() {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Available Commands"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/function [name]", "Show or switch assistant mode"},
		{"/new", "Start a fresh conversation"},
		{"/load [id]", "List or resume saved chats"},
		{"/history", "Show conversation history"},
		{"/clear, /c", "Clear local conversation history"},
		{"/clear-memory [fn]", "Clear backend memory"},
		{"/upload <file>", "Upload a document for doc_qa"},
		{"/login [user]", "Log in to the backend"},
		{"/config [key val]", "Show or set configuration"},
		{"/status, /s", "Show session status"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			HighlightStyle.Render(fmt.Sprintf("%-20s", c.cmd)),
			InfoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(InfoStyle.Render("Tip: Ctrl+C cancels the current response, Ctrl+D exits"))
	fmt.Println()
}

// printStatus prints session statistics.
func printStatus(sess *ChatSession) {
	status := sess.Manager.GetStatus()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Status"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()
	fmt.Printf("  %s %s\n", InfoStyle.Render("Mode:"),
		HighlightStyle.Render(model.FunctionDisplayName(status.Function)))
	fmt.Printf("  %s %s\n", InfoStyle.Render("Backend:"), sess.Client.BaseURL())
	fmt.Printf("  %s %s\n", InfoStyle.Render("User:"), sess.Client.UserID())
	fmt.Printf("  %s %s\n", InfoStyle.Render("Duration:"),
		session.FormatDuration(status.Duration))
	fmt.Printf("  %s %d messages\n", InfoStyle.Render("History:"), status.MessageCount)
	if status.IsDirty {
		fmt.Printf("  %s unsaved changes\n", InfoStyle.Render("State:"))
	}
	fmt.Println()
}

// printHistory prints conversation history.
func printHistory(sess *ChatSession) {
	conv := sess.Manager.Conversation()
	if conv.MessageCount() == 0 {
		fmt.Println(InfoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Conversation History"))
	fmt.Println(RenderSeparator(25))
	fmt.Println()

	for i, msg := range conv.Messages {
		fmt.Printf("  %d. %s: %s\n", i+1,
			HighlightStyle.Render(msg.Role.DisplayName()),
			msg.Preview(100))
	}

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(sess *ChatSession) {
	status := sess.Manager.GetStatus()

	if status.MessageCount == 0 {
		fmt.Println(InfoStyle.Render("Goodbye!"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Summary"))
	fmt.Println(RenderSeparator(15))
	fmt.Printf("  %s %d\n", InfoStyle.Render("Messages:"), status.MessageCount)
	fmt.Printf("  %s %s\n", InfoStyle.Render("Duration:"),
		session.FormatDuration(status.Duration))
	fmt.Println()
	fmt.Println(InfoStyle.Render("Goodbye!"))
}
