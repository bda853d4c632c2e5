package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// Signer produces the authentication headers for signed exchange requests:
// the request signature is HMAC-SHA256 over timestamp+method+path+body, and
// the passphrase travels base64-encoded after the same HMAC treatment.
type Signer struct {
	key        string
	secret     []byte
	passphrase string
}

// NewSigner creates a signer for one API credential set.
func NewSigner(key, secret, passphrase string) *Signer {
	return &Signer{key: key, secret: []byte(secret), passphrase: passphrase}
}

// Sign computes the base64 HMAC-SHA256 signature for one request.
func (s *Signer) Sign(timestamp, method, path, body string) string {
	return s.hmacB64(timestamp + method + path + body)
}

// SignedPassphrase returns the HMAC'd, base64-encoded passphrase header value.
func (s *Signer) SignedPassphrase() string {
	return s.hmacB64(s.passphrase)
}

// Headers builds the full header set for a request issued now.
func (s *Signer) Headers(method, path, body string) map[string]string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return map[string]string{
		"ACCESS-KEY":        s.key,
		"ACCESS-SIGN":       s.Sign(ts, method, path, body),
		"ACCESS-TIMESTAMP":  ts,
		"ACCESS-PASSPHRASE": s.SignedPassphrase(),
	}
}

func (s *Signer) hmacB64(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
