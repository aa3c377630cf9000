package wire

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
	"testing"

	kerrors "github.com/fnos-tools/fnauth/internal/errors"
)

func TestRandomKeyLengthAndAlphabet(t *testing.T) {
	key, err := RandomKey(32)
	if err != nil {
		t.Fatalf("RandomKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("Expected 32 characters, got %d", len(key))
	}
	for _, c := range key {
		if !strings.ContainsRune(keyAlphabet, c) {
			t.Errorf("Unexpected character %q in session key", c)
		}
	}

	other, err := RandomKey(32)
	if err != nil {
		t.Fatalf("RandomKey failed: %v", err)
	}
	if key == other {
		t.Error("Two generated session keys should not collide")
	}
}

func TestRandomIVLength(t *testing.T) {
	iv, err := RandomIV()
	if err != nil {
		t.Fatalf("RandomIV failed: %v", err)
	}
	if len(iv) != 16 {
		t.Errorf("Expected 16-byte IV, got %d", len(iv))
	}
}

func TestAESEncryptDecryptRoundTrip(t *testing.T) {
	key, err := RandomKey(32)
	if err != nil {
		t.Fatalf("RandomKey failed: %v", err)
	}
	iv, err := RandomIV()
	if err != nil {
		t.Fatalf("RandomIV failed: %v", err)
	}

	plaintext := `{"req":"user.login","user":"anna"}`
	ciphertext, err := AESEncrypt(plaintext, key, iv)
	if err != nil {
		t.Fatalf("AESEncrypt failed: %v", err)
	}

	decryptedB64, err := AESDecrypt(ciphertext, key, iv)
	if err != nil {
		t.Fatalf("AESDecrypt failed: %v", err)
	}

	// Decryption returns base64 of the recovered bytes.
	decrypted, err := base64.StdEncoding.DecodeString(decryptedB64)
	if err != nil {
		t.Fatalf("AESDecrypt output is not base64: %v", err)
	}
	if string(decrypted) != plaintext {
		t.Errorf("Expected %q, got %q", plaintext, string(decrypted))
	}
}

func TestAESDecryptRejectsGarbage(t *testing.T) {
	key, _ := RandomKey(32)
	iv, _ := RandomIV()

	if _, err := AESDecrypt("not base64!!!", key, iv); err == nil {
		t.Fatal("Expected error for invalid base64")
	} else if !errors.Is(err, kerrors.ErrCrypto) {
		t.Errorf("Expected ErrCrypto, got %v", err)
	}

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := AESDecrypt(short, key, iv); err == nil {
		t.Fatal("Expected error for non-block-multiple ciphertext")
	}
}

func TestAESEncryptRejectsBadKey(t *testing.T) {
	iv, _ := RandomIV()
	if _, err := AESEncrypt("data", "too short", iv); err == nil {
		t.Fatal("Expected error for non-32-byte key")
	}
}

func TestEncryptSessionKeyPKIX(t *testing.T) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	sessionKey, _ := RandomKey(32)
	encrypted, err := EncryptSessionKey(publicPEM, sessionKey)
	if err != nil {
		t.Fatalf("EncryptSessionKey failed: %v", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatalf("Encrypted session key is not base64: %v", err)
	}
	decrypted, err := rsa.DecryptPKCS1v15(rand.Reader, private, ciphertext)
	if err != nil {
		t.Fatalf("RSA decryption failed: %v", err)
	}
	if string(decrypted) != sessionKey {
		t.Errorf("Expected %q, got %q", sessionKey, string(decrypted))
	}
}

func TestEncryptSessionKeyPKCS1(t *testing.T) {
	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	der := x509.MarshalPKCS1PublicKey(&private.PublicKey)
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: der}))

	if _, err := EncryptSessionKey(publicPEM, "0123456789abcdef0123456789abcdef"); err != nil {
		t.Fatalf("EncryptSessionKey failed for PKCS#1 key: %v", err)
	}
}

func TestEncryptSessionKeyRejectsBadPEM(t *testing.T) {
	_, err := EncryptSessionKey("not a pem", "0123456789abcdef0123456789abcdef")
	if err == nil {
		t.Fatal("Expected error for malformed PEM")
	}
	if !errors.Is(err, kerrors.ErrCrypto) {
		t.Errorf("Expected ErrCrypto, got %v", err)
	}
}

func TestSignMatchesHMAC(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	keyB64 := base64.StdEncoding.EncodeToString(key)
	data := []byte(`{"req":"user.authToken"}`)

	sig, err := Sign(data, keyB64)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(sig) != 44 {
		t.Errorf("Expected 44-character base64 signature, got %d", len(sig))
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if sig != expected {
		t.Errorf("Expected %q, got %q", expected, sig)
	}
}

func TestSignRejectsBadKey(t *testing.T) {
	if _, err := Sign([]byte("data"), "%%% not base64"); err == nil {
		t.Fatal("Expected error for non-base64 sign key")
	}
}
