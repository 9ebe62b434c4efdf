// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// SupportsColor checks if stdout is a terminal that renders ANSI colors
func SupportsColor() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) { // #nosec G115 - file descriptors are small integers
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "" || termEnv == "dumb" {
		return false
	}

	return true
}

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	addressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	amountStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func render(style lipgloss.Style, s string) string {
	if !SupportsColor() {
		return s
	}
	return style.Render(s)
}

// Label styles a field name.
func Label(s string) string { return render(labelStyle, s) }

// Address styles an account address.
func Address(s string) string { return render(addressStyle, s) }

// Amount styles a balance.
func Amount(s string) string { return render(amountStyle, s) }

// Failure styles an error line.
func Failure(s string) string { return render(errorStyle, s) }

// Success styles a confirmation line.
func Success(s string) string { return render(okStyle, s) }
