package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Requests that are sent unsigned. The encrypted envelope carries its own
// protection, and the key-exchange requests necessarily run before any sign
// key exists.
var noSignRequests = map[string]bool{
	"encrypted":             true,
	"util.getSI":            true,
	"util.crypto.getRSAPub": true,
	"ping":                  true,
}

// Envelope is the wire form of an encrypted request: the AES session key
// under the server's RSA key, and the request payload under the session key.
type Envelope struct {
	Req string `json:"req"`
	IV  string `json:"iv"`
	RSA string `json:"rsa"`
	AES string `json:"aes"`
}

// EncryptedEnvelope wraps a compact-JSON request payload for the operations
// the server requires to be encrypted (user.login, user.add).
func EncryptedEnvelope(payloadJSON []byte, publicKeyPEM, sessionKey string, iv []byte) (*Envelope, error) {
	rsaPart, err := EncryptSessionKey(publicKeyPEM, sessionKey)
	if err != nil {
		return nil, err
	}

	aesPart, err := AESEncrypt(string(payloadJSON), sessionKey, iv)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Req: "encrypted",
		IV:  base64.StdEncoding.EncodeToString(iv),
		RSA: rsaPart,
		AES: aesPart,
	}, nil
}

// Frame produces the wire text for a request. Signed frames are the base64
// HMAC signature immediately followed by the JSON, no separator; the
// signature covers the exact bytes that follow it, so compactJSON must be
// the same marshaled bytes that are transmitted.
func Frame(reqName string, compactJSON []byte, signKeyB64 string) ([]byte, error) {
	if noSignRequests[reqName] || signKeyB64 == "" {
		return compactJSON, nil
	}

	sig, err := Sign(compactJSON, signKeyB64)
	if err != nil {
		return nil, err
	}

	framed := make([]byte, 0, len(sig)+len(compactJSON))
	framed = append(framed, sig...)
	framed = append(framed, compactJSON...)
	return framed, nil
}

// MarshalCompact serializes a request to compact JSON. encoding/json emits
// no whitespace, which is what the signature scheme requires.
func MarshalCompact(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}
