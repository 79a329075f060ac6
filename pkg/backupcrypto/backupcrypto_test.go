package backupcrypto

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	plain := `{"users":[{"username":"admin"}],"note":"สวัสดี"}`

	p, err := Encrypt(plain, "correct horse")
	require.NoError(t, err)
	assert.True(t, p.IsEncrypted)

	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	require.NoError(t, err)
	assert.Len(t, salt, SaltSize)
	iv, err := base64.StdEncoding.DecodeString(p.IV)
	require.NoError(t, err)
	assert.Len(t, iv, NonceSize)

	got, ok := Decrypt(p, "correct horse")
	require.True(t, ok)
	assert.Equal(t, plain, got)
}

func TestEncrypt_FreshSaltAndIVEveryCall(t *testing.T) {
	a, err := Encrypt("same", "pw")
	require.NoError(t, err)
	b, err := Encrypt("same", "pw")
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.EncryptedData, b.EncryptedData)
}

func TestEncrypt_RejectsEmptyPassword(t *testing.T) {
	_, err := Encrypt("x", "")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestDecrypt_FailuresDoNotPanic(t *testing.T) {
	p, err := Encrypt("secret data", "right")
	require.NoError(t, err)

	_, ok := Decrypt(p, "wrong")
	assert.False(t, ok)

	tampered := *p
	raw, _ := base64.StdEncoding.DecodeString(p.EncryptedData)
	raw[0] ^= 0xFF
	tampered.EncryptedData = base64.StdEncoding.EncodeToString(raw)
	_, ok = Decrypt(&tampered, "right")
	assert.False(t, ok)

	broken := *p
	broken.Salt = "not base64!!"
	_, ok = Decrypt(&broken, "right")
	assert.False(t, ok)

	shortIV := *p
	shortIV.IV = base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	_, ok = Decrypt(&shortIV, "right")
	assert.False(t, ok)

	_, ok = Decrypt(nil, "right")
	assert.False(t, ok)
	_, ok = Decrypt(&EncryptedPayload{}, "right")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	p, err := Encrypt("x", "pw")
	require.NoError(t, err)
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	parsed, ok := Parse(raw)
	require.True(t, ok)
	assert.Equal(t, p.EncryptedData, parsed.EncryptedData)

	_, ok = Parse([]byte(`{"users":[]}`))
	assert.False(t, ok)
	_, ok = Parse([]byte(`not json`))
	assert.False(t, ok)
}
