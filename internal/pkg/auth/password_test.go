package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasherCost(t *testing.T) {
	if hasher := NewBcryptHasher(0); hasher.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", hasher.cost)
	}
	if hasher := NewBcryptHasher(bcrypt.MinCost); hasher.cost != bcrypt.MinCost {
		t.Fatalf("expected custom cost, got %d", hasher.cost)
	}
}

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("refund-2025")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "" || hash == "refund-2025" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if err := hasher.Compare(hash, "refund-2025"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := hasher.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestBcryptHasherRejectsLongPassword(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	if _, err := hasher.Hash(strings.Repeat("x", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected too long error, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("x", MaxPasswordBytes)); err != nil {
		t.Fatalf("expected max length password to hash, got %v", err)
	}
}

func TestBcryptHasherErrors(t *testing.T) {
	hasher := &BcryptHasher{cost: bcrypt.MaxCost + 1}
	if _, err := hasher.Hash("password"); err == nil {
		t.Fatal("expected hash error for invalid cost")
	}

	err := NewBcryptHasher(bcrypt.MinCost).Compare("not-a-bcrypt-hash", "password")
	if err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected corrupt hash error, got %v", err)
	}
}
