package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/mr-tron/base58"
)

func newTestWallet(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	return base58.Encode(pubKey), privKey
}

func TestVerifySignature_ValidSignature(t *testing.T) {
	wallet, privKey := newTestWallet(t)

	message := []byte(BuildChallenge(wallet, time.Now(), "test-nonce-12345"))
	sig := ed25519.Sign(privKey, message)

	err := VerifySignature(wallet, message, base64.StdEncoding.EncodeToString(sig))
	if err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}
}

func TestVerifySignature_WrongKeypair(t *testing.T) {
	wallet, _ := newTestWallet(t)
	_, otherPriv := newTestWallet(t)

	message := []byte("some challenge text")
	sig := ed25519.Sign(otherPriv, message)

	if err := VerifySignature(wallet, message, base64.StdEncoding.EncodeToString(sig)); err == nil {
		t.Fatal("expected error for signature from a different keypair")
	}
}

func TestVerifySignature_TamperedMessage(t *testing.T) {
	wallet, privKey := newTestWallet(t)

	sig := ed25519.Sign(privKey, []byte("original message"))

	if err := VerifySignature(wallet, []byte("tampered message"), base64.StdEncoding.EncodeToString(sig)); err == nil {
		t.Fatal("expected error for tampered message")
	}
}

func TestVerifySignature_MalformedInput(t *testing.T) {
	wallet, privKey := newTestWallet(t)
	message := []byte("msg")
	goodSig := base64.StdEncoding.EncodeToString(ed25519.Sign(privKey, message))

	tests := []struct {
		name    string
		address string
		sig     string
	}{
		{"empty address", "", goodSig},
		{"non-base58 address", "0OIl+/=", goodSig},
		{"short address", base58.Encode([]byte{1, 2, 3}), goodSig},
		{"non-base64 signature", wallet, "%%%not-base64%%%"},
		{"short signature", wallet, base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifySignature(tt.address, message, tt.sig); err == nil {
				t.Fatal("expected error for malformed input")
			}
		})
	}
}

func TestChallenge_RoundTrip(t *testing.T) {
	wallet, _ := newTestWallet(t)
	issued := time.Now()

	msg := BuildChallenge(wallet, issued, "nonce-1")

	ch, err := ParseChallenge(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ch.WalletAddress != wallet {
		t.Errorf("wallet = %s, want %s", ch.WalletAddress, wallet)
	}
	if ch.Nonce != "nonce-1" {
		t.Errorf("nonce = %s, want nonce-1", ch.Nonce)
	}
	if ch.IssuedAt.UnixMilli() != issued.UnixMilli() {
		t.Errorf("issued_at = %d, want %d", ch.IssuedAt.UnixMilli(), issued.UnixMilli())
	}

	if err := ch.Validate(wallet, time.Now()); err != nil {
		t.Fatalf("expected fresh challenge to validate, got: %v", err)
	}
}

func TestChallenge_Validate(t *testing.T) {
	wallet, _ := newTestWallet(t)
	other, _ := newTestWallet(t)
	now := time.Now()

	tests := []struct {
		name   string
		wallet string
		issued time.Time
		valid  bool
	}{
		{"fresh", wallet, now.Add(-10 * time.Second), true},
		{"expired", wallet, now.Add(-10 * time.Minute), false},
		{"future", wallet, now.Add(5 * time.Minute), false},
		{"wrong wallet", other, now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &Challenge{WalletAddress: tt.wallet, IssuedAt: tt.issued, Nonce: "n"}
			err := ch.Validate(wallet, now)
			if tt.valid && err != nil {
				t.Fatalf("expected valid, got: %v", err)
			}
			if !tt.valid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseChallenge_BadFormat(t *testing.T) {
	tests := []string{
		"",
		"just one line",
		"wrong preamble\nwallet\n123\nnonce",
		ChallengePreamble + "\nwallet\nnot-a-timestamp\nnonce",
	}
	for _, msg := range tests {
		if _, err := ParseChallenge(msg); err == nil {
			t.Fatalf("expected parse error for %q", msg)
		}
	}
}
