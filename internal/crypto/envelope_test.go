// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestSealOpen(t *testing.T) {
	plaintext := []byte("ed25519 seed material")
	passphrase := []byte("correct horse battery staple")

	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed envelope contains plaintext")
	}
	if !IsSealed(sealed) {
		t.Fatal("IsSealed() = false for sealed data")
	}

	got, err := Open(sealed, passphrase)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	a, err := Seal([]byte("x"), []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Seal([]byte("x"), []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("two seals of the same plaintext are identical")
	}
}

func TestOpen_WrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret"), []byte("right"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(sealed, []byte("wrong")); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Open() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestOpen_Tampered(t *testing.T) {
	sealed, err := Seal([]byte("secret"), []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	var env Envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		t.Fatal(err)
	}
	env.Ciphertext = "AAAA" + env.Ciphertext[4:]
	tampered, _ := json.Marshal(env)

	if _, err := Open(tampered, []byte("pw")); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Open() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestOpen_Version(t *testing.T) {
	data := []byte(`{"envelope_version":1,"nonce":"AA==","ciphertext":"AA=="}`)
	if _, err := Open(data, []byte("pw")); !errors.Is(err, ErrUnsupportedEnvelope) {
		t.Errorf("Open() error = %v, want ErrUnsupportedEnvelope", err)
	}
	if _, err := Open([]byte("not json"), []byte("pw")); err == nil {
		t.Error("Open() accepted malformed input")
	}
}

func TestIsSealed(t *testing.T) {
	if IsSealed([]byte(`{"seed":"abc"}`)) {
		t.Error("plain key file reported as sealed")
	}
	if IsSealed([]byte("garbage")) {
		t.Error("garbage reported as sealed")
	}
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ZeroBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d = %d, want 0", i, v)
		}
	}
	ZeroBytes(nil)
}
