// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package runtime

// AccountStorageOverhead is the per-account byte count charged on top of data.
const AccountStorageOverhead = 128

// Rent parameters. An account holding at least MinimumBalance for its data
// size is rent-exempt and never charged.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// DefaultRent returns mainnet rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionThreshold:  2.0,
	}
}

// MinimumBalance returns the rent-exempt minimum for an account holding
// dataLen bytes.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(AccountStorageOverhead) + uint64(dataLen) // #nosec G115 - lengths are non-negative
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt reports whether lamports covers the exemption minimum.
func (r Rent) IsExempt(lamports uint64, dataLen int) bool {
	return lamports >= r.MinimumBalance(dataLen)
}

// rentState classifies an account for the post-execution rent check.
type rentState int

const (
	rentUninitialized rentState = iota
	rentPaying
	rentExempt
)

func (r Rent) state(lamports uint64, dataLen int) rentState {
	switch {
	case lamports == 0:
		return rentUninitialized
	case r.IsExempt(lamports, dataLen):
		return rentExempt
	default:
		return rentPaying
	}
}

// transitionAllowed reports whether an account may move from pre to post.
// New rent-paying accounts are forbidden; an account that was already
// rent-paying may stay so only if it does not grow or gain lamports.
func transitionAllowed(pre, post rentState, preLamports, postLamports uint64, preLen, postLen int) bool {
	if post != rentPaying {
		return true
	}
	if pre != rentPaying {
		return false
	}
	return preLen == postLen && postLamports <= preLamports
}
