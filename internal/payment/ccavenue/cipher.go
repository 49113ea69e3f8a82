package ccavenue

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	errCiphertextLength = errors.New("ccavenue: ciphertext is not a multiple of the block size")
	errPadding          = errors.New("ccavenue: invalid padding")
)

// Cipher is AES-128-CBC keyed by the raw MD5 digest of the working key with an all-zero IV.
// Both legs of the protocol depend on these exact parameters.
type Cipher struct {
	block cipher.Block
}

func NewCipher(workingKey string) (*Cipher, error) {
	if workingKey == "" {
		return nil, errors.New("ccavenue: working key is required")
	}
	key := md5.Sum([]byte(workingKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &Cipher{block: block}, nil
}

// Encrypt returns the hex ciphertext of plaintext.
func (c *Cipher) Encrypt(plaintext string) string {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, make([]byte, aes.BlockSize)).CryptBlocks(out, padded)
	return hex.EncodeToString(out)
}

// Decrypt accepts hex ciphertext and falls back to base64.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", errors.New("ccavenue: ciphertext is neither hex nor base64")
		}
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", errCiphertextLength
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, make([]byte, aes.BlockSize)).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, errPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}
