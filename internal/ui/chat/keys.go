// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys.go - Key bindings for the chat view.
package chat

// KeyBinding pairs a key chord with its help description.
type KeyBinding struct {
	Key  string
	Help string
}

// KeyMap holds the chat view key bindings, in help display order.
type KeyMap struct {
	Submit   KeyBinding
	Cancel   KeyBinding
	Quit     KeyBinding
	Clear    KeyBinding
	NewChat  KeyBinding
	PageUp   KeyBinding
	PageDown KeyBinding
	Top      KeyBinding
	Bottom   KeyBinding
	Help     KeyBinding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit:   KeyBinding{"enter", "send message"},
		Cancel:   KeyBinding{"esc", "cancel streaming reply"},
		Quit:     KeyBinding{"ctrl+c", "quit (cancels stream first)"},
		Clear:    KeyBinding{"ctrl+l", "clear conversation"},
		NewChat:  KeyBinding{"ctrl+n", "new conversation"},
		PageUp:   KeyBinding{"pgup / ctrl+u", "scroll up"},
		PageDown: KeyBinding{"pgdn / ctrl+d", "scroll down"},
		Top:      KeyBinding{"home", "go to top"},
		Bottom:   KeyBinding{"end", "go to bottom"},
		Help:     KeyBinding{"ctrl+h", "toggle this help"},
	}
}

// Bindings returns the bindings in display order for the help overlay.
func (k KeyMap) Bindings() []KeyBinding {
	return []KeyBinding{
		k.Submit, k.Cancel, k.Quit, k.Clear, k.NewChat,
		k.PageUp, k.PageDown, k.Top, k.Bottom, k.Help,
	}
}
