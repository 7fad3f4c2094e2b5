package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL matches the session lifetime the backend has always
	// handed out: 8 hours.
	DefaultTokenTTL = 8 * time.Hour

	// The key is used directly as the A256GCM content-encryption key.
	tokenKeyLen = 32

	// Tolerated clock skew when validating issued-at.
	iatSkew = 5 * time.Second

	gcmTagLen = 16
)

// Claims is the payload sealed inside a session token. The token is
// encrypted, not merely signed: role and verification flags must not be
// readable or forgeable by the client.
type Claims struct {
	Role     Role   `json:"role"`
	Verified bool   `json:"verified"`
	Alias    string `json:"alias,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and decodes encrypted session tokens. The wire format is
// a JWE compact serialization with direct key agreement and AES-256-GCM
// content encryption, so the token is opaque to any party without the key.
type TokenCodec struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// CodecOption configures TokenCodec behavior.
type CodecOption func(*TokenCodec)

// WithTokenTTL overrides the session token lifetime.
func WithTokenTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewTokenCodec constructs a codec. The key must be exactly 32 bytes; it is
// used as-is, not stretched. A wrong-length key is a deployment mistake and
// fails here so startup can abort.
func NewTokenCodec(key []byte, issuer, audience string, opts ...CodecOption) (*TokenCodec, error) {
	if len(key) != tokenKeyLen {
		return nil, fmt.Errorf("%w: token key must be %d bytes, got %d", ErrConfig, tokenKeyLen, len(key))
	}
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", ErrConfig)
	}
	c := &TokenCodec{
		key:      key,
		issuer:   issuer,
		audience: audience,
		ttl:      DefaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue mints a token for the credential and returns it with its lifetime in
// seconds. Every issuance gets a fresh unique id for later revocation.
func (c *TokenCodec) Issue(cred *Credential) (token string, expiresIn int, err error) {
	now := c.now().UTC()
	claims := Claims{
		Role:     NormalizeRole(cred.Role),
		Verified: cred.Verified,
		Alias:    cred.Alias,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			Subject:   cred.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", 0, fmt.Errorf("marshal claims: %w", err)
	}
	token, err = c.seal(payload)
	if err != nil {
		return "", 0, err
	}
	return token, int(c.ttl / time.Second), nil
}

// Decode decrypts a token and validates its claims. Every failure mode maps
// to ErrInvalidToken; callers must not leak which check failed.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	payload, err := c.open(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if err := c.validateClaims(&claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (c *TokenCodec) validateClaims(claims *Claims) error {
	if claims.Issuer != c.issuer {
		return fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if !containsAudience(claims.Audience, c.audience) {
		return fmt.Errorf("unexpected audience %v", claims.Audience)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return fmt.Errorf("subject missing")
	}
	if strings.TrimSpace(claims.ID) == "" {
		return fmt.Errorf("token id missing")
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return fmt.Errorf("timestamps missing")
	}
	now := c.now().UTC()
	if !now.Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("token expired")
	}
	if claims.IssuedAt.Time.After(now.Add(iatSkew)) {
		return fmt.Errorf("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return fmt.Errorf("token expiry precedes issued-at")
	}
	return nil
}

// seal produces the five-segment JWE compact form:
// header..iv.ciphertext.tag (the encrypted-key segment is empty under "dir").
// The base64 header doubles as the GCM additional authenticated data, so a
// tampered header also fails decryption.
func (c *TokenCodec) seal(payload []byte) (string, error) {
	header := map[string]string{"alg": "dir", "enc": "A256GCM", "typ": "JWE"}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	headerSegment := base64.RawURLEncoding.EncodeToString(headerJSON)

	aead, err := c.aead()
	if err != nil {
		return "", err
	}
	iv := make([]byte, aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	sealed := aead.Seal(nil, iv, payload, []byte(headerSegment))
	ciphertext, tag := sealed[:len(sealed)-gcmTagLen], sealed[len(sealed)-gcmTagLen:]

	segments := []string{
		headerSegment,
		"",
		base64.RawURLEncoding.EncodeToString(iv),
		base64.RawURLEncoding.EncodeToString(ciphertext),
		base64.RawURLEncoding.EncodeToString(tag),
	}
	return strings.Join(segments, "."), nil
}

func (c *TokenCodec) open(token string) ([]byte, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 5 || segments[1] != "" {
		return nil, ErrInvalidToken
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(segments[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var header map[string]string
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, ErrInvalidToken
	}
	if header["alg"] != "dir" || header["enc"] != "A256GCM" {
		return nil, ErrInvalidToken
	}
	iv, err := base64.RawURLEncoding.DecodeString(segments[2])
	if err != nil {
		return nil, ErrInvalidToken
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(segments[3])
	if err != nil {
		return nil, ErrInvalidToken
	}
	tag, err := base64.RawURLEncoding.DecodeString(segments[4])
	if err != nil || len(tag) != gcmTagLen {
		return nil, ErrInvalidToken
	}

	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	if len(iv) != aead.NonceSize() {
		return nil, ErrInvalidToken
	}
	payload, err := aead.Open(nil, iv, append(ciphertext, tag...), []byte(segments[0]))
	if err != nil {
		return nil, ErrInvalidToken
	}
	return payload, nil
}

func (c *TokenCodec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
