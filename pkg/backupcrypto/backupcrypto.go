// Package backupcrypto encrypts backup snapshots with a password.
//
// A key is derived with PBKDF2-HMAC-SHA256 over a random salt and the
// plaintext is sealed with AES-256-GCM. Salt and nonce travel with the
// ciphertext, so the password alone is enough to decrypt.
package backupcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Iterations = 100000
	KeySize    = 32
	SaltSize   = 16
	NonceSize  = 12
)

var ErrEmptyPassword = errors.New("backup password is empty")

// EncryptedPayload is the on-disk wrapper of an encrypted snapshot.
type EncryptedPayload struct {
	IsEncrypted   bool   `json:"isEncrypted"`
	Salt          string `json:"salt"`
	IV            string `json:"iv"`
	EncryptedData string `json:"encryptedData"`
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under password. A fresh salt and nonce are drawn
// on every call.
func Encrypt(plaintext, password string) (*EncryptedPayload, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return &EncryptedPayload{
		IsEncrypted:   true,
		Salt:          base64.StdEncoding.EncodeToString(salt),
		IV:            base64.StdEncoding.EncodeToString(nonce),
		EncryptedData: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// Decrypt opens a payload. It returns false on any failure: malformed
// fields, a wrong password or a tampered ciphertext.
func Decrypt(p *EncryptedPayload, password string) (string, bool) {
	if p == nil || !p.IsEncrypted {
		return "", false
	}
	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil || len(salt) == 0 {
		return "", false
	}
	nonce, err := base64.StdEncoding.DecodeString(p.IV)
	if err != nil || len(nonce) != NonceSize {
		return "", false
	}
	data, err := base64.StdEncoding.DecodeString(p.EncryptedData)
	if err != nil {
		return "", false
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return "", false
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", false
	}
	plain, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}

// Parse decodes raw as an encrypted payload. ok is false when raw is not
// JSON or does not carry the isEncrypted marker.
func Parse(raw []byte) (*EncryptedPayload, bool) {
	var p EncryptedPayload
	if err := json.Unmarshal(raw, &p); err != nil || !p.IsEncrypted {
		return nil, false
	}
	return &p, true
}
