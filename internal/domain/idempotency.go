package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxIdempotencyTokenLength bounds the client-supplied key header.
const MaxIdempotencyTokenLength = 255

// IdempotencyKey identifies one logical write. Two requests share a key
// only when endpoint, user and request hash all match.
type IdempotencyKey struct {
	Endpoint    string
	UserID      string
	RequestHash string
}

// NewIdempotencyKey hashes the client token together with the canonical
// form of the request body.
func NewIdempotencyKey(endpoint, userID, token string, body []byte) (IdempotencyKey, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > MaxIdempotencyTokenLength {
		return IdempotencyKey{}, fmt.Errorf("%w: token must be 1-%d characters", ErrInvalidIdempotency, MaxIdempotencyTokenLength)
	}
	if endpoint == "" || userID == "" {
		return IdempotencyKey{}, fmt.Errorf("%w: endpoint and user are required", ErrInvalidIdempotency)
	}
	canonical, err := CanonicalJSON(body)
	if err != nil {
		return IdempotencyKey{}, err
	}
	return IdempotencyKey{
		Endpoint:    endpoint,
		UserID:      userID,
		RequestHash: HashRequest(token, canonical),
	}, nil
}

// IsZero reports whether the key is unset.
func (k IdempotencyKey) IsZero() bool { return k == IdempotencyKey{} }

func (k IdempotencyKey) String() string {
	return k.Endpoint + "|" + k.UserID + "|" + k.RequestHash
}

// HashRequest returns the hex SHA-256 of token and canonical body.
func HashRequest(token string, canonicalBody []byte) string {
	h := sha256.New()
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write(canonicalBody)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalJSON re-encodes body with sorted object keys and no
// insignificant whitespace. An empty body stays empty.
func CanonicalJSON(body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidIdempotency)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize body: %w", err)
	}
	return out, nil
}

// IdempotencyRecord is the stored outcome of a completed keyed write.
type IdempotencyRecord struct {
	Key          IdempotencyKey
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
}
