// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"strconv"
	"strings"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// FormatAmountWithDecimals formats an amount with the specified number of decimal places.
// If decimals is 0, returns the raw integer value.
func FormatAmountWithDecimals(amountUnits uint64, decimals uint64) string {
	digits := strconv.FormatUint(amountUnits, 10)
	if decimals == 0 {
		return digits
	}
	n := int(decimals) // #nosec G115 - decimals is a display precision
	if len(digits) <= n {
		digits = strings.Repeat("0", n-len(digits)+1) + digits
	}
	return digits[:len(digits)-n] + "." + digits[len(digits)-n:]
}

// FormatSOL renders lamports as SOL with nine decimals.
func FormatSOL(lamports uint64) string {
	return FormatAmountWithDecimals(lamports, 9) + " SOL"
}

// ParseLamports parses an amount given either as whole lamports ("1500") or
// as SOL with a decimal point ("1.5", "0.000000001").
func ParseLamports(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if !hasPoint {
		v, err := strconv.ParseUint(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		return v, nil
	}

	if len(frac) > 9 {
		return 0, fmt.Errorf("invalid amount %q: more than 9 decimal places", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	var f uint64
	if frac != "" {
		f, err = strconv.ParseUint(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}
	if w > (^uint64(0)-f)/LamportsPerSOL {
		return 0, fmt.Errorf("invalid amount %q: overflows", s)
	}
	return w*LamportsPerSOL + f, nil
}
