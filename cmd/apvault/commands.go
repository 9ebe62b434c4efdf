// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aplane-algo/apvault/internal/crypto"
	"github.com/aplane-algo/apvault/internal/engine"
	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/util"
)

// usageError is a malformed command line. full asks for the whole usage text.
type usageError struct {
	msg  string
	full bool
}

func (e usageError) Error() string { return e.msg }

type app struct {
	eng *engine.Engine
	out io.Writer
	in  io.Reader
}

func (a *app) run(ctx context.Context, args []string) error {
	command, rest := args[0], args[1:]

	switch command {
	case "keygen":
		return a.cmdKeygen(ctx)
	case "import":
		return a.cmdImport(ctx, rest)
	case "export":
		if len(rest) != 1 {
			return usageError{msg: "usage: apvault export <ADDRESS>"}
		}
		return a.cmdExport(ctx, rest[0])
	case "keys":
		return a.cmdKeys(ctx)
	case "airdrop":
		if len(rest) != 2 {
			return usageError{msg: "usage: apvault airdrop <ADDRESS> <amount>"}
		}
		return a.cmdAirdrop(ctx, rest[0], rest[1])
	case "init":
		if len(rest) != 1 {
			return usageError{msg: "usage: apvault init <ADDRESS>"}
		}
		return a.cmdInit(ctx, rest[0])
	case "deposit":
		if len(rest) != 2 {
			return usageError{msg: "usage: apvault deposit <ADDRESS> <amount>"}
		}
		return a.cmdDeposit(ctx, rest[0], rest[1])
	case "show":
		if len(rest) != 1 {
			return usageError{msg: "usage: apvault show <ADDRESS>"}
		}
		return a.cmdShow(ctx, rest[0])
	case "balance":
		if len(rest) != 1 {
			return usageError{msg: "usage: apvault balance <ADDRESS>"}
		}
		return a.cmdBalance(ctx, rest[0])
	default:
		return usageError{msg: fmt.Sprintf("unknown command: %s", command), full: true}
	}
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) field(name, value string) {
	a.printf("  %s %s\n", util.Label(fmt.Sprintf("%-10s", name+":")), value)
}

func (a *app) cmdKeygen(ctx context.Context) error {
	meta, err := a.eng.Keys.Generate(ctx)
	if err != nil {
		return err
	}
	a.printf("%s\n", util.Success("Generated key"))
	a.field("Address", util.Address(meta.Address.String()))
	a.field("File", meta.FilePath)
	a.field("Encrypted", fmt.Sprintf("%t", meta.Encrypted))
	return nil
}

func (a *app) cmdImport(ctx context.Context, words []string) error {
	phrase := strings.Join(words, " ")
	if phrase == "" {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read mnemonic: %w", err)
		}
		phrase = line
	}
	meta, err := a.eng.Keys.Import(ctx, phrase)
	if err != nil {
		return err
	}
	a.printf("%s\n", util.Success("Imported key"))
	a.field("Address", util.Address(meta.Address.String()))
	return nil
}

func (a *app) cmdExport(ctx context.Context, addr string) error {
	address, err := pubkey.Parse(addr)
	if err != nil {
		return err
	}
	words, err := a.eng.Keys.Export(ctx, address)
	if err != nil {
		return err
	}
	a.printf("%s\n", words)
	return nil
}

func (a *app) cmdKeys(ctx context.Context) error {
	keys, err := a.eng.Keys.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		a.printf("No keys. Run 'apvault keygen' to create one.\n")
		return nil
	}
	for _, k := range keys {
		bal, err := a.eng.Balance(ctx, k.Address)
		if err != nil {
			return err
		}
		lock := ""
		if k.Encrypted {
			lock = " (encrypted)"
		}
		a.printf("%s  %s%s\n", util.Address(k.Address.String()), util.Amount(util.FormatSOL(bal)), lock)
	}
	return nil
}

func (a *app) cmdAirdrop(ctx context.Context, addr, amount string) error {
	address, err := pubkey.Parse(addr)
	if err != nil {
		return err
	}
	lamports, err := util.ParseLamports(amount)
	if err != nil {
		return err
	}
	if err := a.eng.Airdrop(ctx, address, lamports); err != nil {
		return err
	}
	bal, err := a.eng.Balance(ctx, address)
	if err != nil {
		return err
	}
	a.printf("%s\n", util.Success(fmt.Sprintf("Airdropped %s", util.FormatSOL(lamports))))
	a.field("Balance", util.Amount(util.FormatSOL(bal)))
	return nil
}

func (a *app) cmdInit(ctx context.Context, addr string) error {
	address, err := pubkey.Parse(addr)
	if err != nil {
		return err
	}
	signer, err := a.eng.Signer(ctx, address)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(signer)

	result, err := a.eng.Initialize(ctx, signer)
	a.printResult(result)
	if err != nil {
		return err
	}
	return a.cmdShow(ctx, addr)
}

func (a *app) cmdDeposit(ctx context.Context, addr, amount string) error {
	address, err := pubkey.Parse(addr)
	if err != nil {
		return err
	}
	lamports, err := util.ParseLamports(amount)
	if err != nil {
		return err
	}
	signer, err := a.eng.Signer(ctx, address)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(signer)

	result, err := a.eng.Deposit(ctx, signer, lamports)
	a.printResult(result)
	if err != nil {
		return err
	}
	return a.cmdShow(ctx, addr)
}

func (a *app) cmdShow(ctx context.Context, addr string) error {
	address, err := pubkey.Parse(addr)
	if err != nil {
		return err
	}
	info, err := a.eng.Vault(ctx, address)
	if err != nil {
		return err
	}
	a.printf("Vault of %s\n", util.Address(info.Owner.String()))
	a.field("State", fmt.Sprintf("%s (bump %d)", util.Address(info.StateAddress.String()), info.StateBump))
	a.field("Vault", fmt.Sprintf("%s (bump %d)", util.Address(info.VaultAddress.String()), info.VaultBump))
	a.field("Balance", util.Amount(util.FormatSOL(info.VaultLamports)))
	a.field("Deposited", util.Amount(util.FormatSOL(info.Deposited)))
	return nil
}

func (a *app) cmdBalance(ctx context.Context, addr string) error {
	address, err := pubkey.Parse(addr)
	if err != nil {
		return err
	}
	bal, err := a.eng.Balance(ctx, address)
	if err != nil {
		return err
	}
	a.printf("%s\n", util.Amount(util.FormatSOL(bal)))
	return nil
}

func (a *app) printResult(result *engine.SubmitResult) {
	if result == nil {
		return
	}
	a.field("Signature", result.Signature)
	a.field("Slot", fmt.Sprintf("%d", result.Slot))
	a.field("Fee", util.FormatSOL(result.Fee))
	for _, line := range result.Logs {
		util.Debug(line)
	}
}

// runConfig writes config.yaml with defaults when the data directory has
// none, then prints the settings in effect. It runs without an engine.
func runConfig(out io.Writer, dataDir string) error {
	path := util.GetConfigPath(dataDir)
	_, statErr := os.Stat(path)
	if statErr != nil && !os.IsNotExist(statErr) {
		return statErr
	}

	config, err := util.LoadConfigFromPath(path)
	if err != nil {
		return err
	}
	if os.IsNotExist(statErr) {
		if err := util.SaveConfig(dataDir, config); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s\n", util.Success("Wrote "+path))
	}

	a := &app{out: out}
	a.field("Config", path)
	a.field("Ledger", config.Ledger)
	if config.Ledger == util.LedgerSQLite {
		a.field("Database", util.ResolvePath(config.LedgerPath, dataDir))
	}
	a.field("Keys", util.ResolvePath(config.KeysDir, dataDir))
	a.field("Fee", util.FormatSOL(config.LamportsPerSignature)+" per signature")
	a.field("Rent", fmt.Sprintf("%d lamports/byte-year, exempt after %g years",
		config.Rent.LamportsPerByteYear, config.Rent.ExemptionThreshold))
	return nil
}
