package transport

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net/http"
	"strconv"
	"time"
)

// Signature headers.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderKeyID     = "X-Key-Id"
)

// Signer computes HMAC signatures for outgoing requests.
//
// The signed string is the method, the request URI (path and query), the
// unix timestamp and the body, joined by newlines. The hex digest goes into
// X-Signature, the timestamp into X-Timestamp and the key id into X-Key-Id.
type Signer struct {
	keyID   string
	secret  []byte
	algo    string
	newHash func() hash.Hash

	// Now returns the signing time. Tests may replace it.
	Now func() time.Time
}

// NewSigner creates a signer. algo is one of sha1, sha256 or sha512
// (sha256 when empty).
func NewSigner(keyID, secret, algo string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("hmac secret is empty")
	}
	if algo == "" {
		algo = "sha256"
	}
	newHash, err := hashFunc(algo)
	if err != nil {
		return nil, err
	}
	return &Signer{
		keyID:   keyID,
		secret:  []byte(secret),
		algo:    algo,
		newHash: newHash,
		Now:     time.Now,
	}, nil
}

func hashFunc(algo string) (func() hash.Hash, error) {
	switch algo {
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported algo %s", algo)
	}
}

// KeyID returns the key identifier sent with each signature.
func (s *Signer) KeyID() string { return s.keyID }

// Algo returns the hash algorithm name.
func (s *Signer) Algo() string { return s.algo }

// Sign sets the signature headers on r. body must be the exact request body.
func (s *Signer) Sign(r *http.Request, body []byte) error {
	ts := strconv.FormatInt(s.Now().Unix(), 10)
	r.Header.Set(HeaderTimestamp, ts)
	if s.keyID != "" {
		r.Header.Set(HeaderKeyID, s.keyID)
	}
	r.Header.Set(HeaderSignature, s.Signature(r.Method, r.URL.RequestURI(), ts, body))
	return nil
}

// Signature returns the hex signature for the given request parts.
func (s *Signer) Signature(method, requestURI, timestamp string, body []byte) string {
	mac := hmac.New(s.newHash, s.secret)
	mac.Write([]byte(method))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(requestURI))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'\n'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature headers of an incoming request against body.
// Requests older than maxSkew are rejected; a zero maxSkew disables the check.
func (s *Signer) Verify(r *http.Request, body []byte, maxSkew time.Duration) error {
	sig := r.Header.Get(HeaderSignature)
	ts := r.Header.Get(HeaderTimestamp)
	if sig == "" || ts == "" {
		return errors.New("missing signature headers")
	}
	if s.keyID != "" && r.Header.Get(HeaderKeyID) != s.keyID {
		return errors.New("unknown key id")
	}
	if maxSkew > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		if d := s.Now().Sub(time.Unix(unix, 0)); d > maxSkew || d < -maxSkew {
			return errors.New("signature timestamp outside allowed skew")
		}
	}
	expected := s.Signature(r.Method, r.URL.RequestURI(), ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return errors.New("signature mismatch")
	}
	return nil
}
