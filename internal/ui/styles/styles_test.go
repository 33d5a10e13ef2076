// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_Defaults(t *testing.T) {
	theme := NewTheme()
	if theme.Width() != 80 {
		t.Errorf("Width = %d, want 80", theme.Width())
	}
	if theme.Height() != 24 {
		t.Errorf("Height = %d, want 24", theme.Height())
	}
}

func TestTheme_SetSize(t *testing.T) {
	theme := NewTheme()
	theme.SetSize(120, 40)
	if theme.Width() != 120 || theme.Height() != 40 {
		t.Errorf("size = %dx%d, want 120x40", theme.Width(), theme.Height())
	}
}

func TestTheme_RoleLabel(t *testing.T) {
	theme := NewTheme()
	if got := theme.RoleLabel("user").Render("x"); got != theme.UserLabel.Render("x") {
		t.Error("user role should map to UserLabel")
	}
	if got := theme.RoleLabel("assistant").Render("x"); got != theme.AssistantLabel.Render("x") {
		t.Error("assistant role should map to AssistantLabel")
	}
	if got := theme.RoleLabel("system").Render("x"); got != theme.SystemLabel.Render("x") {
		t.Error("unknown role should map to SystemLabel")
	}
}

func TestStatusIndicators_ASCIIOnly(t *testing.T) {
	indicators := []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
		StatusIndicators.Pending,
	}
	for _, ind := range indicators {
		for _, r := range ind {
			if r > 127 {
				t.Errorf("indicator %q contains non-ASCII rune %q", ind, r)
			}
		}
	}
}

func TestRenderHelpers_IncludeIndicator(t *testing.T) {
	if !strings.Contains(RenderSuccess("done"), "[OK]") {
		t.Error("RenderSuccess missing indicator")
	}
	if !strings.Contains(RenderError("boom"), "[X]") {
		t.Error("RenderError missing indicator")
	}
	if !strings.Contains(RenderWarning("careful"), "[!]") {
		t.Error("RenderWarning missing indicator")
	}
}
