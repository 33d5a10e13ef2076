// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"

	"github.com/gamesage/gamesage-tui/internal/backend"
)

// =============================================================================
// FUNCTION INFO TYPE
// =============================================================================

// FunctionInfo contains display information about an assistant mode.
// This is used for mode selection and display in the UI.
type FunctionInfo struct {
	// ID is the mode identifier sent in API calls
	ID backend.Function `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Description is a brief explanation of what the mode does
	Description string `json:"description"`

	// UsesCollection reports whether the mode consults the local game
	// collection
	UsesCollection bool `json:"uses_collection"`

	// UsesDocuments reports whether the mode answers from uploaded
	// documents
	UsesDocuments bool `json:"uses_documents"`
}

// =============================================================================
// FUNCTION REGISTRY
// =============================================================================

// Functions is the registry of assistant modes with their metadata.
var Functions = map[backend.Function]FunctionInfo{
	backend.FunctionGeneral: {
		ID:          backend.FunctionGeneral,
		Name:        "General Chat",
		Description: "Open-ended conversation about games and gaming",
	},
	backend.FunctionPlay: {
		ID:             backend.FunctionPlay,
		Name:           "What To Play",
		Description:    "Recommendations drawn from your game collection",
		UsesCollection: true,
	},
	backend.FunctionGameGuide: {
		ID:          backend.FunctionGameGuide,
		Name:        "Game Guide",
		Description: "Walkthrough help, strategies, and tips",
	},
	backend.FunctionDocQA: {
		ID:            backend.FunctionDocQA,
		Name:          "Document Q&A",
		Description:   "Answers grounded in your uploaded documents",
		UsesDocuments: true,
	},
	backend.FunctionGameWiki: {
		ID:          backend.FunctionGameWiki,
		Name:        "Game Wiki",
		Description: "Factual lookups about games, studios, and series",
	},
}

// FunctionOrder is the display order for mode listings.
var FunctionOrder = []backend.Function{
	backend.FunctionGeneral,
	backend.FunctionPlay,
	backend.FunctionGameGuide,
	backend.FunctionDocQA,
	backend.FunctionGameWiki,
}

// =============================================================================
// LOOKUP HELPERS
// =============================================================================

// LookupFunction resolves a user-entered mode name to its registry entry.
// Matching is case-insensitive and accepts both the wire ID and the display
// name.
func LookupFunction(name string) (FunctionInfo, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, id := range FunctionOrder {
		info := Functions[id]
		if strings.ToLower(string(info.ID)) == needle || strings.ToLower(info.Name) == needle {
			return info, true
		}
	}
	return FunctionInfo{}, false
}

// FunctionDisplayName returns the display name for a mode, falling back to
// the raw identifier for unknown modes.
func FunctionDisplayName(fn backend.Function) string {
	if info, ok := Functions[fn]; ok {
		return info.Name
	}
	return string(fn)
}

// FormatFunctionList returns a human-readable listing of available modes.
func FormatFunctionList(active backend.Function) string {
	var b strings.Builder
	for _, id := range FunctionOrder {
		info := Functions[id]
		marker := " "
		if id == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-12s %s\n", marker, info.ID, info.Description)
	}
	return b.String()
}
