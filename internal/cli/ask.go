// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for the gamesage CLI.
//
// Command: ask
// Short:   Ask a single question and stream the answer
//
// Examples:
//   gamesage ask "What should I play next?" --function play
//   gamesage ask "How do I unlock the true ending?" --function game_guide
//   gamesage ask "Summarize this" --file notes.md
//   gamesage ask "List 5 roguelikes" --no-pacing > out.txt
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/config"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// MaxFileSize is the maximum file size to inline into a prompt (50KB).
	MaxFileSize = 50 * 1024
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display. Returns the
// original content if rendering fails or the renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// markdownEnabled reports whether finished replies should be re-rendered as
// markdown: stdout must be a TTY and the ui.markdown option enabled. When
// disabled, streaming paths print deltas live instead of collecting the
// whole reply.
func markdownEnabled() bool {
	return shouldRenderMarkdown(IsStdoutTTY(), config.Global().UI.Markdown)
}

func shouldRenderMarkdown(tty, optIn bool) bool {
	return tty && optIn
}

// displayResponse displays a response with markdown rendering when enabled,
// to avoid corrupting piped output.
func displayResponse(response string) {
	if markdownEnabled() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Print(response)
	}
}

// =============================================================================
// ASK HANDLER
// =============================================================================

// HandleAskCommand handles the "ask" command: a single question, streamed to
// stdout with pacing, then optionally re-rendered as markdown.
func HandleAskCommand(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return ErrMissingArgument("question", `gamesage ask "What should I play next?"`)
	}

	fn, err := resolveFunction(args.Function)
	if err != nil {
		return err
	}

	if args.File != "" {
		fileContent, err := readFileForContext(args.File)
		if err != nil {
			return err
		}
		query = query + "\n\n" + fileContent
	}

	client := newBackendClient(args)

	// Fold the saved game collection into collection-aware modes.
	var collection []backend.Game
	if fn == backend.FunctionPlay {
		if store, err := openStore(); err == nil {
			collection = loadCollection(store)
			store.Close()
		}
	}

	req := backend.ChatRequest{
		Message:        query,
		Function:       fn,
		GameCollection: collection,
	}

	// Ctrl+C aborts the stream; an aborted stream is not an error.
	token := backend.NewCancelToken()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		token.Abort()
	}()

	useMarkdown := markdownEnabled()
	var response strings.Builder
	start := time.Now()

	err = client.ChatStream(context.Background(), req, func(delta string) {
		response.WriteString(delta)
		if !useMarkdown {
			fmt.Print(delta)
		}
	}, token)
	if err != nil {
		return err
	}

	if token.Aborted() {
		fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
		return nil
	}

	if useMarkdown {
		displayResponse(response.String())
	}
	fmt.Println()

	if args.Verbose {
		elapsed := time.Since(start)
		fmt.Fprintf(os.Stderr, "%s %s chars in %s\n",
			DimStyle.Render("[Stats]"),
			formatNumber(response.Len()),
			elapsed.Round(time.Millisecond))
	}

	return nil
}

// =============================================================================
// FILE READING
// =============================================================================

// readFileForContext reads a file and formats it for inclusion in a prompt.
// Files larger than MaxFileSize are rejected.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return fmt.Sprintf("--- %s ---\n%s", path, string(content)), nil
}
