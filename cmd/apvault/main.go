// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/aplane-algo/apvault/internal/crypto"
	"github.com/aplane-algo/apvault/internal/engine"
	"github.com/aplane-algo/apvault/internal/util"
	"github.com/aplane-algo/apvault/internal/version"
)

func main() {
	// Handle early-exit flags before any other processing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Printf("apvault %s\n", version.String())
			os.Exit(0)
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "apvault - Custodial vaults on a local ledger\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] keygen\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] import [mnemonic words...]\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] export <ADDRESS>\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] keys\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] airdrop <ADDRESS> <amount>\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] init <ADDRESS>\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] deposit <ADDRESS> <amount>\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] show <ADDRESS>\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] balance <ADDRESS>\n")
		fmt.Fprintf(os.Stderr, "  apvault [-d path] config\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fmt.Fprintf(os.Stderr, "  -d path              Data directory (or set APVAULT_DATA env var)\n")
		fmt.Fprintf(os.Stderr, "\nAmounts are lamports (1500) or SOL with a decimal point (1.5).\n")
		fmt.Fprintf(os.Stderr, "Set APVAULT_PASSPHRASE to encrypt new keys and unlock encrypted ones.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  apvault keygen\n")
		fmt.Fprintf(os.Stderr, "  apvault airdrop ABC123... 2.0\n")
		fmt.Fprintf(os.Stderr, "  apvault init ABC123...\n")
		fmt.Fprintf(os.Stderr, "  apvault deposit ABC123... 0.5\n")
		fmt.Fprintf(os.Stderr, "  apvault show ABC123...\n")
	}

	dataDir := flag.String("d", "", "Data directory (or set APVAULT_DATA)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	util.InitLogger()
	resolvedDataDir := util.RequireDataDir(*dataDir)
	if args[0] == "config" {
		if err := runConfig(os.Stdout, resolvedDataDir); err != nil {
			fmt.Fprintln(os.Stderr, util.Failure("Error: "+err.Error()))
			os.Exit(1)
		}
		return
	}
	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	passphrase, err := resolvePassphrase(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	eng, err := engine.NewInitializedEngine(ctx, config, passphrase)
	crypto.ZeroBytes(passphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a := &app{eng: eng, out: os.Stdout, in: os.Stdin}
	err = a.run(ctx, args)
	if cerr := eng.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, util.Failure("Error: "+err.Error()))
		var usage usageError
		if errors.As(err, &usage) && usage.full {
			flag.Usage()
		}
		os.Exit(1)
	}
}
