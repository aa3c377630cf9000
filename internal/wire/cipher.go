package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"

	kerrors "github.com/fnos-tools/fnauth/internal/errors"
)

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomKey generates a cryptographically secure random string of the given
// length over the alphanumeric alphabet. Session keys are 32 characters so
// their bytes form a valid AES-256 key.
func RandomKey(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate session key: %w", err)
		}
		buf[i] = keyAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// RandomIV generates a 16-byte AES-CBC initialization vector.
func RandomIV() ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	return iv, nil
}

// EncryptSessionKey encrypts the session key with the server's RSA public
// key using PKCS#1 v1.5 and returns the base64 ciphertext.
func EncryptSessionKey(publicKeyPEM, sessionKey string) (string, error) {
	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(sessionKey))
	if err != nil {
		return "", fmt.Errorf("%w: RSA encryption: %v", kerrors.ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func parsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in server public key", kerrors.ErrCrypto)
	}

	// Servers have shipped both PKIX ("PUBLIC KEY") and PKCS#1
	// ("RSA PUBLIC KEY") encodings.
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: server public key is not RSA", kerrors.ErrCrypto)
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed server public key: %v", kerrors.ErrCrypto, err)
	}
	return rsaKey, nil
}

// AESEncrypt encrypts plaintext with AES-256-CBC and PKCS#7 padding,
// returning the base64 ciphertext. The key is the 32-character session key;
// the IV must be 16 bytes.
func AESEncrypt(plaintext, key string, iv []byte) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrCrypto, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: IV must be %d bytes, got %d", kerrors.ErrCrypto, aes.BlockSize, len(iv))
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// AESDecrypt decrypts base64 AES-256-CBC ciphertext and returns the
// decrypted bytes re-encoded as base64. The protocol delivers the request
// sign key this way: the server's "secret" decrypts to the raw HMAC key,
// which every consumer expects base64-encoded.
func AESDecrypt(ciphertextB64, key string, iv []byte) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrCrypto, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: IV must be %d bytes, got %d", kerrors.ErrCrypto, aes.BlockSize, len(iv))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not valid base64: %v", kerrors.ErrCrypto, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a block multiple", kerrors.ErrCrypto, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(unpadded), nil
}

// Sign computes the base64 HMAC-SHA256 signature of data, keyed by the
// base64-decoded sign key.
func Sign(data []byte, signKeyB64 string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(signKeyB64)
	if err != nil {
		return "", fmt.Errorf("%w: sign key is not valid base64: %v", kerrors.ErrCrypto, err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length %d", kerrors.ErrCrypto, len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("%w: invalid padding byte %d", kerrors.ErrCrypto, padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: inconsistent padding", kerrors.ErrCrypto)
		}
	}
	return data[:len(data)-padding], nil
}
