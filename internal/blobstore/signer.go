package blobstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultURLExpiry is how long a resolved URL stays valid.
const DefaultURLExpiry = 6 * time.Minute

var (
	ErrSignatureExpired = errors.New("signed url expired")
	ErrSignatureInvalid = errors.New("signed url signature invalid")
)

// Signer builds and verifies expiring blob URLs of the form
// <base>/blobs/<key>?expires=<unix>&sig=<hmac>.
type Signer struct {
	Secret  []byte
	BaseURL string
	Expiry  time.Duration
	Now     func() time.Time
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Signer) expiry() time.Duration {
	if s.Expiry <= 0 {
		return DefaultURLExpiry
	}
	return s.Expiry
}

func (s *Signer) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// URL returns a signed URL for key and its expiry time.
func (s *Signer) URL(key string) (string, time.Time) {
	exp := s.now().Add(s.expiry()).Truncate(time.Second)
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(exp.Unix(), 10))
	q.Set("sig", s.sign(key, exp.Unix()))
	return strings.TrimRight(s.BaseURL, "/") + "/blobs/" + escapeKey(key) + "?" + q.Encode(), exp
}

// Verify checks the expires and sig query values for key.
func (s *Signer) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	want := s.sign(key, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if s.now().Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
