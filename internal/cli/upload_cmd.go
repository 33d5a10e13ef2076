// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// upload_cmd.go - Document upload for the gamesage CLI.
//
// Command: upload <file>
// Short:   Upload a document to the backend for doc_qa
//
// The backend chunks and indexes the document; ask about it afterwards
// with --function doc_qa.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// uploadTimeout bounds the whole upload including backend indexing.
const uploadTimeout = 2 * time.Minute

// HandleUpload handles the "upload" command and exits with an appropriate code.
func HandleUpload(args Args) {
	if err := runUploadCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runUploadCommand(args Args) error {
	path := args.File
	if path == "" {
		path = args.Query
	}
	if path == "" {
		return ErrMissingArgument("file", "gamesage upload walkthrough.pdf")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return NewValidationError("file", path, "is a directory")
	}

	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "Uploading %s (%s)...\n",
			filepath.Base(path), formatBytes(info.Size()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	client := newBackendClient(args)
	result, err := client.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(result)
	}

	fmt.Printf("%s Uploaded %s (%d chunks indexed)\n",
		SuccessStyle.Render("[OK]"), result.Filename, result.ChunksCreated)
	if result.Message != "" {
		fmt.Println(DimStyle.Render(result.Message))
	}
	fmt.Println(DimStyle.Render("Ask about it with: gamesage ask -f doc_qa \"...\""))
	return nil
}

// formatBytes renders a byte count in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
