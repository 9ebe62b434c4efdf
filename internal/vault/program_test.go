// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/pubkey"
	"github.com/aplane-algo/apvault/internal/runtime"
)

const (
	sol           = 1_000_000_000
	fee           = runtime.DefaultLamportsPerSignature
	stateRent     = 960_480
	vaultRent     = 890_880
	initializeFee = fee + stateRent + vaultRent
)

type testEnv struct {
	bank  *runtime.Bank
	store ledger.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := ledger.NewMemStore()
	bank, err := runtime.NewBank(store, runtime.WithProgram(New()))
	require.NoError(t, err)
	return &testEnv{bank: bank, store: store}
}

func (e *testEnv) user(t *testing.T, lamports uint64) (pubkey.Pubkey, ed25519.PrivateKey) {
	t.Helper()
	addr, priv, err := pubkey.NewKeypair()
	require.NoError(t, err)
	if lamports > 0 {
		require.NoError(t, e.bank.Airdrop(context.Background(), addr, lamports))
	}
	return addr, priv
}

func (e *testEnv) send(t *testing.T, signers []ed25519.PrivateKey, ixs ...runtime.Instruction) (*runtime.TransactionResult, error) {
	t.Helper()
	tx, err := runtime.NewTransaction(pubkey.Of(signers[0]), e.bank.LatestBlockhash(), ixs...)
	require.NoError(t, err)
	require.NoError(t, tx.Sign(signers...))
	return e.bank.ProcessTransaction(context.Background(), tx)
}

func (e *testEnv) initialize(t *testing.T, priv ed25519.PrivateKey) {
	t.Helper()
	ix, err := NewInitializeInstruction(pubkey.Of(priv))
	require.NoError(t, err)
	_, err = e.send(t, []ed25519.PrivateKey{priv}, ix)
	require.NoError(t, err)
}

func (e *testEnv) deposit(t *testing.T, priv ed25519.PrivateKey, amount uint64) error {
	t.Helper()
	ix, err := NewDepositInstruction(pubkey.Of(priv), amount)
	require.NoError(t, err)
	_, err = e.send(t, []ed25519.PrivateKey{priv}, ix)
	return err
}

func (e *testEnv) balance(t *testing.T, key pubkey.Pubkey) uint64 {
	t.Helper()
	b, err := e.bank.GetBalance(context.Background(), key)
	require.NoError(t, err)
	return b
}

func addresses(t *testing.T, user pubkey.Pubkey) (state, vault pubkey.Pubkey) {
	t.Helper()
	state, _, err := StateAddress(user)
	require.NoError(t, err)
	vault, _, err = VaultAddress(state)
	require.NoError(t, err)
	return state, vault
}

// altVaultBump returns the next valid bump below the canonical one.
func altVaultBump(t *testing.T, state pubkey.Pubkey) (uint8, pubkey.Pubkey) {
	t.Helper()
	_, canonical, err := VaultAddress(state)
	require.NoError(t, err)
	for b := int(canonical) - 1; b >= 0; b-- {
		addr, err := VaultAddressWithBump(state, uint8(b))
		if err == nil {
			return uint8(b), addr
		}
	}
	t.Fatal("no alternate bump")
	return 0, pubkey.Pubkey{}
}

func TestInitialize(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	stateAddr, vaultAddr := addresses(t, user)

	ix, err := NewInitializeInstruction(user)
	require.NoError(t, err)
	result, err := env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.NoError(t, err)
	require.Contains(t, result.Logs, "Program log: Instruction: Initialize")

	require.Equal(t, uint64(10*sol-initializeFee), env.balance(t, user))

	stateAcct, err := env.bank.GetAccount(context.Background(), stateAddr)
	require.NoError(t, err)
	require.Equal(t, ProgramID, stateAcct.Owner)
	require.Equal(t, uint64(stateRent), stateAcct.Lamports)
	require.Len(t, stateAcct.Data, VaultStateSize)

	state, err := UnmarshalVaultState(stateAcct.Data)
	require.NoError(t, err)
	_, stateBump, _ := StateAddress(user)
	_, vaultBump, _ := VaultAddress(stateAddr)
	require.Equal(t, VaultState{VaultBump: vaultBump, StateBump: stateBump}, *state)

	vaultAcct, err := env.bank.GetAccount(context.Background(), vaultAddr)
	require.NoError(t, err)
	require.Equal(t, pubkey.SystemProgramID, vaultAcct.Owner)
	require.Equal(t, uint64(vaultRent), vaultAcct.Lamports)
	require.Empty(t, vaultAcct.Data)
}

func TestInitialize_Twice(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	stateAddr, vaultAddr := addresses(t, user)
	before, err := env.bank.GetAccount(context.Background(), stateAddr)
	require.NoError(t, err)

	ix, err := NewInitializeInstruction(user)
	require.NoError(t, err)
	result, err := env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.ErrorIs(t, err, runtime.ErrAccountAlreadyInUse)
	require.NotNil(t, result)

	require.Equal(t, uint64(10*sol-initializeFee-fee), env.balance(t, user))
	require.Equal(t, uint64(vaultRent), env.balance(t, vaultAddr))
	after, err := env.bank.GetAccount(context.Background(), stateAddr)
	require.NoError(t, err)
	require.True(t, before.Equal(after))
}

func TestInitialize_ConstraintViolations(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	other, _ := env.user(t, 0)
	_, payerPriv := env.user(t, sol)

	stateAddr, vaultAddr := addresses(t, user)
	otherState, _ := addresses(t, other)
	_, altVault := altVaultBump(t, stateAddr)

	unsigned := InitializeAccounts{User: user, VaultState: stateAddr, Vault: vaultAddr}.Instruction()
	unsigned.Accounts[0] = runtime.Writable(user, false)

	readonlyUser := InitializeAccounts{User: user, VaultState: stateAddr, Vault: vaultAddr}.Instruction()
	readonlyUser.Accounts[0] = runtime.Readonly(user, true)

	wrongSystem := InitializeAccounts{User: user, VaultState: stateAddr, Vault: vaultAddr}.Instruction()
	wrongSystem.Accounts[3] = runtime.Readonly(other, false)

	short := InitializeAccounts{User: user, VaultState: stateAddr, Vault: vaultAddr}.Instruction()
	short.Accounts = short.Accounts[:3]

	tests := []struct {
		name    string
		signers []ed25519.PrivateKey
		ix      runtime.Instruction
		want    error
	}{
		{
			name:    "user did not sign",
			signers: []ed25519.PrivateKey{payerPriv},
			ix:      unsigned,
			want:    ErrAccountNotSigner,
		},
		{
			name:    "user not writable",
			signers: []ed25519.PrivateKey{payerPriv, priv},
			ix:      readonlyUser,
			want:    ErrConstraintMut,
		},
		{
			name:    "wrong system program",
			signers: []ed25519.PrivateKey{priv},
			ix:      wrongSystem,
			want:    ErrInvalidProgramID,
		},
		{
			name:    "missing accounts",
			signers: []ed25519.PrivateKey{priv},
			ix:      short,
			want:    ErrAccountNotEnoughKeys,
		},
		{
			name:    "state of another user",
			signers: []ed25519.PrivateKey{priv},
			ix:      InitializeAccounts{User: user, VaultState: otherState, Vault: vaultAddr}.Instruction(),
			want:    ErrConstraintSeeds,
		},
		{
			name:    "non-canonical vault",
			signers: []ed25519.PrivateKey{priv},
			ix:      InitializeAccounts{User: user, VaultState: stateAddr, Vault: altVault}.Instruction(),
			want:    ErrConstraintSeeds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.send(t, tt.signers, tt.ix)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := env.bank.GetAccount(context.Background(), stateAddr)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	require.Zero(t, env.balance(t, vaultAddr))
	require.Zero(t, env.balance(t, altVault))
}

func TestInitialize_PrefundedState(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	stateAddr, vaultAddr := addresses(t, user)

	// Anyone can send lamports to the state address before it exists.
	require.NoError(t, env.bank.Airdrop(context.Background(), stateAddr, 1000))

	env.initialize(t, priv)

	stateAcct, err := env.bank.GetAccount(context.Background(), stateAddr)
	require.NoError(t, err)
	require.Equal(t, ProgramID, stateAcct.Owner)
	require.Equal(t, uint64(stateRent), stateAcct.Lamports)
	require.Equal(t, uint64(10*sol-initializeFee+1000), env.balance(t, user))
	require.Equal(t, uint64(vaultRent), env.balance(t, vaultAddr))
}

func TestInitialize_PrefundedVault(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	stateAddr, vaultAddr := addresses(t, user)
	require.NoError(t, env.bank.Airdrop(context.Background(), vaultAddr, 1000))

	ix, err := NewInitializeInstruction(user)
	require.NoError(t, err)
	_, err = env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.ErrorIs(t, err, runtime.ErrAccountAlreadyInUse)

	_, err = env.bank.GetAccount(context.Background(), stateAddr)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestInitialize_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, sol/1000)
	_, vaultAddr := addresses(t, user)

	ix, err := NewInitializeInstruction(user)
	require.NoError(t, err)
	_, err = env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.Error(t, err)
	require.Zero(t, env.balance(t, vaultAddr))
}

func TestDeposit(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	_, vaultAddr := addresses(t, user)
	start := env.balance(t, user)

	require.NoError(t, env.deposit(t, priv, sol))
	require.Equal(t, uint64(vaultRent+sol), env.balance(t, vaultAddr))
	require.Equal(t, start-sol-fee, env.balance(t, user))

	require.NoError(t, env.deposit(t, priv, 0))
	require.Equal(t, uint64(vaultRent+sol), env.balance(t, vaultAddr))
	require.Equal(t, start-sol-2*fee, env.balance(t, user))
}

func TestDeposit_NotInitialized(t *testing.T) {
	env := newTestEnv(t)
	_, priv := env.user(t, sol)
	require.ErrorIs(t, env.deposit(t, priv, 1000), ErrAccountNotInitialized)
}

func TestDeposit_InsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 2*sol)
	env.initialize(t, priv)
	_, vaultAddr := addresses(t, user)
	before := env.balance(t, user)

	err := env.deposit(t, priv, 5*sol)
	require.ErrorIs(t, err, runtime.ErrResultWithNegativeLamports)
	require.Equal(t, before-fee, env.balance(t, user))
	require.Equal(t, uint64(vaultRent), env.balance(t, vaultAddr))
}

func TestDeposit_BelowRentExemption(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 2*sol)
	env.initialize(t, priv)
	_, vaultAddr := addresses(t, user)
	before := env.balance(t, user)

	// Leaves the user with 1000 lamports, funded but not rent-exempt.
	err := env.deposit(t, priv, before-fee-1000)
	require.ErrorIs(t, err, runtime.ErrInsufficientFundsForRent)
	require.Equal(t, before-fee, env.balance(t, user))
	require.Equal(t, uint64(vaultRent), env.balance(t, vaultAddr))
}

func TestDeposit_ForeignAccounts(t *testing.T) {
	env := newTestEnv(t)
	alice, alicePriv := env.user(t, 10*sol)
	_, bobPriv := env.user(t, 10*sol)
	env.initialize(t, alicePriv)
	env.initialize(t, bobPriv)
	aliceState, aliceVault := addresses(t, alice)

	// Bob names Alice's accounts: the vault matches her state, but her
	// state does not derive from Bob's key.
	ix := DepositAccounts{User: pubkey.Of(bobPriv), Vault: aliceVault, VaultState: aliceState}.Instruction(sol)
	_, err := env.send(t, []ed25519.PrivateKey{bobPriv}, ix)
	require.ErrorIs(t, err, ErrConstraintSeeds)
	require.Equal(t, uint64(vaultRent), env.balance(t, aliceVault))
}

func TestDeposit_SpoofedState(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	_, vaultAddr := addresses(t, user)

	fake, _ := env.user(t, sol)
	ix := DepositAccounts{User: user, Vault: vaultAddr, VaultState: fake}.Instruction(sol)
	_, err := env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.ErrorIs(t, err, ErrAccountOwnedByWrongProgram)
}

func TestDeposit_WrongVault(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	stateAddr, _ := addresses(t, user)
	_, altVault := altVaultBump(t, stateAddr)

	ix := DepositAccounts{User: user, Vault: altVault, VaultState: stateAddr}.Instruction(sol)
	_, err := env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.ErrorIs(t, err, ErrConstraintSeeds)
	require.Zero(t, env.balance(t, altVault))
}

func TestDeposit_UsesStoredBump(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	stateAddr, vaultAddr := addresses(t, user)
	bump, altVault := altVaultBump(t, stateAddr)

	// Rewrite the recorded vault bump behind the program's back.
	ctx := context.Background()
	acct, err := env.store.Get(ctx, stateAddr)
	require.NoError(t, err)
	acct.Data[discriminatorSize] = bump
	require.NoError(t, env.store.Commit(ctx, []ledger.Update{{Key: stateAddr, Account: acct}}))

	require.ErrorIs(t, env.deposit(t, priv, sol), ErrConstraintSeeds)

	ix := DepositAccounts{User: user, Vault: altVault, VaultState: stateAddr}.Instruction(sol)
	_, err = env.send(t, []ed25519.PrivateKey{priv}, ix)
	require.NoError(t, err)
	require.Equal(t, uint64(sol), env.balance(t, altVault))
	require.Equal(t, uint64(vaultRent), env.balance(t, vaultAddr))
}

func TestDeposit_CorruptState(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	stateAddr, _ := addresses(t, user)

	ctx := context.Background()
	acct, err := env.store.Get(ctx, stateAddr)
	require.NoError(t, err)
	acct.Data[0] ^= 0xff
	require.NoError(t, env.store.Commit(ctx, []ledger.Update{{Key: stateAddr, Account: acct}}))

	require.ErrorIs(t, env.deposit(t, priv, sol), ErrAccountDiscriminatorMismatch)
}

func TestVault_CannotSignDirectly(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)
	require.NoError(t, env.deposit(t, priv, sol))
	_, vaultAddr := addresses(t, user)
	thief, thiefPriv := env.user(t, sol)

	tx, err := runtime.NewTransaction(thief, env.bank.LatestBlockhash(), runtime.Transfer(vaultAddr, thief, sol))
	require.NoError(t, err)
	require.ErrorIs(t, tx.Sign(thiefPriv), runtime.ErrSignatureFailure)

	// Fill the vault's slot with a signature from some other key.
	tx.Signatures[0] = sign(thiefPriv, tx)
	copy(tx.Signatures[1][:], tx.Signatures[0][:])
	_, err = env.bank.ProcessTransaction(context.Background(), tx)
	require.ErrorIs(t, err, runtime.ErrSignatureFailure)
	require.Equal(t, uint64(vaultRent+sol), env.balance(t, vaultAddr))
}

func sign(priv ed25519.PrivateKey, tx *runtime.Transaction) runtime.Signature {
	var sig runtime.Signature
	copy(sig[:], ed25519.Sign(priv, tx.Message.Bytes()))
	return sig
}

func TestProcess_InstructionData(t *testing.T) {
	env := newTestEnv(t)
	user, priv := env.user(t, 10*sol)
	env.initialize(t, priv)

	deposit, err := NewDepositInstruction(user, 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInstructionMissing},
		{"short", []byte{1, 2, 3}, ErrInstructionMissing},
		{"unknown", []byte{1, 2, 3, 4, 5, 6, 7, 8}, ErrInstructionFallbackNotFound},
		{"truncated amount", deposit.Data[:12], ErrInstructionDidNotDeserialize},
		{"trailing bytes", append(append([]byte(nil), deposit.Data...), 0xff, 0xff), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := deposit
			ix.Data = tt.data
			_, err := env.send(t, []ed25519.PrivateKey{priv}, ix)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	// Only the trailing-bytes deposit of 1 lamport went through.
	_, vaultAddr := addresses(t, user)
	require.Equal(t, uint64(vaultRent+1), env.balance(t, vaultAddr))
}

func TestInstructions_FreshData(t *testing.T) {
	user, _, err := pubkey.NewKeypair()
	require.NoError(t, err)

	ix, err := NewInitializeInstruction(user)
	require.NoError(t, err)
	for i := range ix.Data {
		ix.Data[i] = 0
	}

	again, err := NewInitializeInstruction(user)
	require.NoError(t, err)
	require.Equal(t, initializeDiscriminator[:], again.Data)
}

func TestInitialize_Concurrent(t *testing.T) {
	env := newTestEnv(t)

	const users = 16
	keys := make([]ed25519.PrivateKey, users)
	for i := range keys {
		_, keys[i] = env.user(t, 10*sol)
	}

	var g errgroup.Group
	for _, priv := range keys {
		g.Go(func() error {
			ix, err := NewInitializeInstruction(pubkey.Of(priv))
			if err != nil {
				return err
			}
			tx, err := runtime.NewTransaction(pubkey.Of(priv), env.bank.LatestBlockhash(), ix)
			if err != nil {
				return err
			}
			if err := tx.Sign(priv); err != nil {
				return err
			}
			_, err = env.bank.ProcessTransaction(context.Background(), tx)
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, priv := range keys {
		user := pubkey.Of(priv)
		stateAddr, vaultAddr := addresses(t, user)
		require.Equal(t, uint64(vaultRent), env.balance(t, vaultAddr))
		require.Equal(t, uint64(10*sol-initializeFee), env.balance(t, user))

		acct, err := env.bank.GetAccount(context.Background(), stateAddr)
		require.NoError(t, err)
		state, err := UnmarshalVaultState(acct.Data)
		require.NoError(t, err)
		_, stateBump, err := StateAddress(user)
		require.NoError(t, err)
		_, vaultBump, err := VaultAddress(stateAddr)
		require.NoError(t, err)
		require.Equal(t, VaultState{VaultBump: vaultBump, StateBump: stateBump}, *state)
	}
}

func TestDeposit_Concurrent(t *testing.T) {
	env := newTestEnv(t)

	const users = 4
	const depositsPerUser = 8

	keys := make([]ed25519.PrivateKey, users)
	for i := range keys {
		_, keys[i] = env.user(t, 10*sol)
		env.initialize(t, keys[i])
	}

	var g errgroup.Group
	for _, priv := range keys {
		for j := 1; j <= depositsPerUser; j++ {
			g.Go(func() error {
				ix, err := NewDepositInstruction(pubkey.Of(priv), uint64(j)*1000)
				if err != nil {
					return err
				}
				tx, err := runtime.NewTransaction(pubkey.Of(priv), env.bank.LatestBlockhash(), ix)
				if err != nil {
					return err
				}
				if err := tx.Sign(priv); err != nil {
					return err
				}
				_, err = env.bank.ProcessTransaction(context.Background(), tx)
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	var sum uint64
	for j := uint64(1); j <= depositsPerUser; j++ {
		sum += j * 1000
	}
	for _, priv := range keys {
		user := pubkey.Of(priv)
		_, vaultAddr := addresses(t, user)
		require.Equal(t, vaultRent+sum, env.balance(t, vaultAddr))
		require.Equal(t, 10*sol-initializeFee-sum-depositsPerUser*fee, env.balance(t, user))
	}
}
