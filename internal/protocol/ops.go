package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	kerrors "github.com/fnos-tools/fnauth/internal/errors"
	"github.com/fnos-tools/fnauth/internal/wire"
)

// serverStatus holds the error fields every response may carry. A present
// errno means the operation failed; msg/error carry the server's reason.
type serverStatus struct {
	Errno   *int64 `json:"errno"`
	Msg     string `json:"msg"`
	ErrText string `json:"error"`
}

func (s *serverStatus) failed() bool {
	return s.Errno != nil
}

func (s *serverStatus) message() string {
	if s.Msg != "" {
		return s.Msg
	}
	if s.ErrText != "" {
		return s.ErrText
	}
	if s.Errno != nil {
		return fmt.Sprintf("server error %d", *s.Errno)
	}
	return "unknown server error"
}

func decode(raw json.RawMessage, kind string, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", kerrors.ErrProtocol, kind, err)
	}
	return nil
}

func (c *Client) currentSignKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signKey
}

// send marshals a request once, frames (and signs) those exact bytes, and
// performs the round trip.
func (c *Client) send(ctx context.Context, reqName, reqid string, req interface{}) (json.RawMessage, error) {
	data, err := wire.MarshalCompact(req)
	if err != nil {
		return nil, err
	}
	frame, err := wire.Frame(reqName, data, c.currentSignKey())
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, reqName, reqid, frame)
}

type bareRequest struct {
	Req   string `json:"req"`
	Reqid string `json:"reqid"`
}

// PublicKey is the server's RSA public key and session identifier returned
// by the key-exchange request.
type PublicKey struct {
	Pub string
	SI  string
}

type rsaPubResponse struct {
	serverStatus
	Pub string `json:"pub"`
	SI  string `json:"si"`
}

// GetRSAPub fetches the server's RSA public key and the "si" session
// identifier, storing both on the client for subsequent operations.
func (c *Client) GetRSAPub(ctx context.Context) (*PublicKey, error) {
	reqid := c.nextReqID()
	raw, err := c.send(ctx, "util.crypto.getRSAPub", reqid, bareRequest{Req: "util.crypto.getRSAPub", Reqid: reqid})
	if err != nil {
		return nil, err
	}

	var resp rsaPubResponse
	if err := decode(raw, "getRSAPub", &resp); err != nil {
		return nil, err
	}
	if resp.failed() {
		return nil, fmt.Errorf("%w: getRSAPub: %s", kerrors.ErrProtocol, resp.message())
	}

	c.mu.Lock()
	c.pub = resp.Pub
	c.si = resp.SI
	c.mu.Unlock()

	return &PublicKey{Pub: resp.Pub, SI: resp.SI}, nil
}

type getSIResponse struct {
	serverStatus
	SI string `json:"si"`
}

// GetSI refreshes the server session identifier without re-fetching the
// public key.
func (c *Client) GetSI(ctx context.Context) (string, error) {
	reqid := c.nextReqID()
	raw, err := c.send(ctx, "util.getSI", reqid, bareRequest{Req: "util.getSI", Reqid: reqid})
	if err != nil {
		return "", err
	}

	var resp getSIResponse
	if err := decode(raw, "getSI", &resp); err != nil {
		return "", err
	}
	if resp.failed() {
		return "", fmt.Errorf("%w: getSI: %s", kerrors.ErrProtocol, resp.message())
	}

	c.mu.Lock()
	c.si = resp.SI
	c.mu.Unlock()

	return resp.SI, nil
}

type loginRequest struct {
	Req        string `json:"req"`
	Reqid      string `json:"reqid"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Stay       bool   `json:"stay"`
	DeviceType string `json:"deviceType"`
	DeviceName string `json:"deviceName"`
	SI         string `json:"si"`
}

type loginResponse struct {
	serverStatus
	Token     string `json:"token"`
	Secret    string `json:"secret"`
	UID       int64  `json:"uid"`
	Admin     bool   `json:"admin"`
	BackID    string `json:"backId"`
	LongToken string `json:"longToken"`
}

// Login authenticates with username and password. The request payload is
// wrapped in the hybrid RSA/AES envelope; the server's public key is
// fetched automatically when absent. With stay set, the server also issues
// a long-lived refresh token.
//
// On success the server-issued secret is decrypted with the connection's
// session key into the request sign key, and the client adopts the new
// session for subsequent signed requests.
func (c *Client) Login(ctx context.Context, username, password string, stay bool, deviceType, deviceName string) (*SessionIdentity, error) {
	c.mu.Lock()
	pub, si := c.pub, c.si
	c.mu.Unlock()
	if pub == "" {
		key, err := c.GetRSAPub(ctx)
		if err != nil {
			return nil, err
		}
		pub, si = key.Pub, key.SI
	}

	reqid := c.nextReqID()
	payload, err := wire.MarshalCompact(loginRequest{
		Req:        "user.login",
		Reqid:      reqid,
		User:       username,
		Password:   password,
		Stay:       stay,
		DeviceType: deviceType,
		DeviceName: deviceName,
		SI:         si,
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.sendEncrypted(ctx, "user.login", reqid, payload, pub)
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := decode(raw, "login", &resp); err != nil {
		return nil, err
	}
	if resp.failed() {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrAuth, resp.message())
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", kerrors.ErrProtocol)
	}

	return c.adoptSession(resp.Token, resp.Secret, resp.UID, resp.Admin, resp.BackID, resp.LongToken)
}

// sendEncrypted wraps an already-marshaled payload in the encrypted
// envelope and transmits it. The envelope itself is never signed; the
// response still correlates by the inner payload's reqid.
func (c *Client) sendEncrypted(ctx context.Context, kind, reqid string, payload []byte, pub string) (json.RawMessage, error) {
	c.mu.Lock()
	sessionKey, iv := c.sessionKey, c.iv
	c.mu.Unlock()

	envelope, err := wire.EncryptedEnvelope(payload, pub, sessionKey, iv)
	if err != nil {
		return nil, err
	}
	data, err := wire.MarshalCompact(envelope)
	if err != nil {
		return nil, err
	}
	frame, err := wire.Frame("encrypted", data, "")
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, kind, reqid, frame)
}

type authTokenRequest struct {
	Req   string `json:"req"`
	Reqid string `json:"reqid"`
	Token string `json:"token"`
	Main  bool   `json:"main"`
	SI    string `json:"si"`
}

type authTokenResponse struct {
	serverStatus
	UID    int64  `json:"uid"`
	Admin  bool   `json:"admin"`
	BackID string `json:"backId"`
}

// AuthToken validates a session token on a fresh connection. The caller
// must have injected the token and sign key with Resume first. The server
// session identifier is fetched automatically when absent (via getRSAPub,
// matching browser behavior).
func (c *Client) AuthToken(ctx context.Context, main bool) (*SessionIdentity, error) {
	c.mu.Lock()
	si, token := c.si, c.token
	c.mu.Unlock()
	if token == "" {
		return nil, fmt.Errorf("%w: no session token to validate", kerrors.ErrAuth)
	}
	if si == "" {
		key, err := c.GetRSAPub(ctx)
		if err != nil {
			return nil, err
		}
		si = key.SI
	}

	reqid := c.nextReqID()
	raw, err := c.send(ctx, "user.authToken", reqid, authTokenRequest{
		Req:   "user.authToken",
		Reqid: reqid,
		Token: token,
		Main:  main,
		SI:    si,
	})
	if err != nil {
		return nil, err
	}

	var resp authTokenResponse
	if err := decode(raw, "authToken", &resp); err != nil {
		return nil, err
	}
	if resp.failed() {
		return nil, fmt.Errorf("%w: token validation: %s", kerrors.ErrAuth, resp.message())
	}

	c.mu.Lock()
	if resp.BackID != "" {
		c.backID = resp.BackID
	}
	backID := c.backID
	signKey := c.signKey
	c.mu.Unlock()

	return &SessionIdentity{
		Token:   token,
		SignKey: signKey,
		UID:     resp.UID,
		Admin:   resp.Admin,
		BackID:  backID,
	}, nil
}

type entryTokenResponse struct {
	serverStatus
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// ExchangeEntryToken requests the HTTP bearer credential for an
// authenticated connection. This is the only way an entry token is ever
// issued; it is never derived locally.
func (c *Client) ExchangeEntryToken(ctx context.Context) (string, error) {
	const reqName = "appcgi.sac.entry.v1.exchangeEntryToken"

	reqid := c.nextReqID()
	raw, err := c.send(ctx, reqName, reqid, bareRequest{Req: reqName, Reqid: reqid})
	if err != nil {
		return "", err
	}

	var resp entryTokenResponse
	if err := decode(raw, "exchangeEntryToken", &resp); err != nil {
		return "", err
	}
	if resp.failed() {
		return "", fmt.Errorf("%w: exchangeEntryToken: %s", kerrors.ErrProtocol, resp.message())
	}
	if resp.Data.Token == "" {
		return "", fmt.Errorf("%w: exchangeEntryToken response carried no token", kerrors.ErrProtocol)
	}
	return resp.Data.Token, nil
}

type tokenLoginRequest struct {
	Req        string `json:"req"`
	Reqid      string `json:"reqid"`
	Token      string `json:"token"`
	DeviceType string `json:"deviceType"`
	DeviceName string `json:"deviceName"`
}

// TokenLogin exchanges a long-lived refresh token for a fresh session
// token without a password. The secret-decryption step matches Login.
func (c *Client) TokenLogin(ctx context.Context, longToken, deviceType, deviceName string) (*SessionIdentity, error) {
	reqid := c.nextReqID()
	raw, err := c.send(ctx, "user.tokenLogin", reqid, tokenLoginRequest{
		Req:        "user.tokenLogin",
		Reqid:      reqid,
		Token:      longToken,
		DeviceType: deviceType,
		DeviceName: deviceName,
	})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := decode(raw, "tokenLogin", &resp); err != nil {
		return nil, err
	}
	if resp.failed() {
		return nil, fmt.Errorf("%w: token login: %s", kerrors.ErrAuth, resp.message())
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: tokenLogin response carried no token", kerrors.ErrProtocol)
	}

	return c.adoptSession(resp.Token, resp.Secret, resp.UID, resp.Admin, resp.BackID, "")
}

// adoptSession decrypts the server secret into the sign key and records
// the session on the client so subsequent requests are signed and carry
// the session's backId.
func (c *Client) adoptSession(token, secret string, uid int64, admin bool, backID, longToken string) (*SessionIdentity, error) {
	var signKey string
	if secret != "" {
		c.mu.Lock()
		sessionKey, iv := c.sessionKey, c.iv
		c.mu.Unlock()

		var err error
		signKey, err = wire.AESDecrypt(secret, sessionKey, iv)
		if err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.token = token
	c.signKey = signKey
	if backID != "" {
		c.backID = backID
	}
	backID = c.backID
	c.mu.Unlock()

	return &SessionIdentity{
		Token:     token,
		SignKey:   signKey,
		UID:       uid,
		Admin:     admin,
		BackID:    backID,
		LongToken: longToken,
	}, nil
}
