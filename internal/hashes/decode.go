// Package hashes decodes lockfile hash encodings, picks the best artifact
// hash per package and reconciles lockfile hashes with SBOM components.
package hashes

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
	ErrMalformedValue   = errors.New("malformed hash value")
)

// DecodePrefixed decodes "algorithm:hexvalue" (e.g. "sha256:ABC1...").
func DecodePrefixed(s string) (model.HashAlgorithm, string, error) {
	token, value, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return model.HashUnknown, "", fmt.Errorf("%w: %q has no algorithm prefix", ErrMalformedValue, s)
	}
	alg, ok := model.ParseHashAlgorithm(token)
	if !ok {
		return model.HashUnknown, "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, token)
	}
	hexValue, err := NormalizeHex(value)
	if err != nil {
		return model.HashUnknown, "", err
	}
	return alg, hexValue, nil
}

// DecodeSRI decodes a Subresource-Integrity value "algorithm-base64digest"
// into lowercase hex.
func DecodeSRI(s string) (model.HashAlgorithm, string, error) {
	s = strings.TrimSpace(s)
	// The digest is base64 and never contains '-', so the last dash splits
	// algorithm from value even for tokens like "sha3-256".
	i := strings.LastIndex(s, "-")
	if i <= 0 {
		return model.HashUnknown, "", fmt.Errorf("%w: %q is not an SRI value", ErrMalformedValue, s)
	}
	token, digest := s[:i], s[i+1:]
	alg, ok := model.ParseHashAlgorithm(token)
	if !ok {
		return model.HashUnknown, "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, token)
	}
	// Drop SRI options ("sha256-abc?foo").
	if q := strings.IndexByte(digest, '?'); q >= 0 {
		digest = digest[:q]
	}
	raw, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return model.HashUnknown, "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	if len(raw) == 0 {
		return model.HashUnknown, "", fmt.Errorf("%w: empty digest", ErrMalformedValue)
	}
	return alg, hex.EncodeToString(raw), nil
}

// Decode accepts either encoding: the prefixed form is tried first, then SRI.
func Decode(s string) (model.HashAlgorithm, string, error) {
	if strings.Contains(s, ":") {
		return DecodePrefixed(s)
	}
	return DecodeSRI(s)
}

// DecodeSRIList decodes a whitespace separated list of SRI values, as found
// in npm and yarn "integrity" fields, keeping only the entries that decode.
func DecodeSRIList(s string) []model.Hash {
	var out []model.Hash
	for _, field := range strings.Fields(s) {
		alg, value, err := DecodeSRI(field)
		if err != nil {
			continue
		}
		out = append(out, model.Hash{Algorithm: alg, Value: value})
	}
	return out
}

// NormalizeHex lowercases a hex digest and rejects anything that is not hex.
func NormalizeHex(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", fmt.Errorf("%w: empty digest", ErrMalformedValue)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedValue, err)
	}
	return value, nil
}

// NormalizeDigest is NormalizeHex plus a length check against the algorithm's
// digest size. Lockfiles that store bare hex use it to drop truncated values.
func NormalizeDigest(alg model.HashAlgorithm, value string) (string, error) {
	value, err := NormalizeHex(value)
	if err != nil {
		return "", err
	}
	if n := alg.HexLen(); n > 0 && len(value) != n {
		return "", fmt.Errorf("%w: %s digest has %d hex characters, want %d", ErrMalformedValue, alg, len(value), n)
	}
	return value, nil
}
