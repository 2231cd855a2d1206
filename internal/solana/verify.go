package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// DecodeAddress декодирует Solana-адрес (base58) в Ed25519 публичный ключ.
// Адрес кошелька — это и есть публичный ключ, 32 байта.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	if address == "" {
		return nil, fmt.Errorf("empty wallet address")
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: %d", len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// VerifySignature проверяет detached Ed25519 подпись challenge-сообщения.
//
// message — точный UTF-8 текст, который подписал кошелёк (byte-for-byte);
// signatureB64 — подпись в base64 (так её отдаёт Phantom signMessage).
//
// Любой битый вход (не-base58 адрес, не-base64 подпись, неверная длина)
// возвращается как ошибка верификации, не паника.
func VerifySignature(address string, message []byte, signatureB64 string) error {
	pubKey, err := DecodeAddress(address)
	if err != nil {
		return err
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	if !ed25519.Verify(pubKey, message, sig) {
		return fmt.Errorf("invalid signature")
	}

	return nil
}
