// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// commands that read or write private keys
var keyCommands = map[string]bool{
	"keygen":  true,
	"import":  true,
	"export":  true,
	"init":    true,
	"deposit": true,
}

// resolvePassphrase returns APVAULT_PASSPHRASE, or prompts for one when a
// key command runs on a terminal. An empty passphrase stores keys in the clear.
func resolvePassphrase(command string) ([]byte, error) {
	if env, ok := os.LookupEnv("APVAULT_PASSPHRASE"); ok {
		return []byte(env), nil
	}
	if !keyCommands[command] {
		return nil, nil
	}

	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors are small integers
	if !term.IsTerminal(fd) {
		return nil, nil
	}
	fmt.Fprint(os.Stderr, "Keystore passphrase (empty for none): ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return pass, nil
}
