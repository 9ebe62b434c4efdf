// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"github.com/aplane-algo/apvault/internal/runtime"
)

// deposit moves amount from the user into the vault. The user's own
// signature authorizes the transfer; zero is a valid amount.
func (p *Program) deposit(ictx *runtime.InvokeContext, amount uint64) error {
	accts, err := loadDeposit(ictx)
	if err != nil {
		return err
	}
	return ictx.Invoke(runtime.Transfer(accts.user.Key, accts.vault.Key, amount))
}
