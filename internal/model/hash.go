package model

import "strings"

// HashAlgorithm is a cryptographic hash algorithm. Each variant has two
// canonical spellings: the CycloneDX one and the SPDX one. They are listed
// explicitly in algorithmTable because the families disagree on hyphens
// (SHA-256 vs SHA256, but SHA3-256 in both).
type HashAlgorithm int

const (
	HashUnknown HashAlgorithm = iota
	MD5
	SHA1
	SHA256
	SHA384
	SHA512
	SHA3_256
	SHA3_384
	SHA3_512
	BLAKE2b256
	BLAKE2b384
	BLAKE2b512
	BLAKE3
)

type algorithmSpelling struct {
	cyclonedx string
	spdx      string
	tokens    []string // lowercase lockfile / prefix tokens
	hexLen    int      // digest length in hex characters, 0 when variable
}

var algorithmTable = map[HashAlgorithm]algorithmSpelling{
	MD5:        {"MD5", "MD5", []string{"md5"}, 32},
	SHA1:       {"SHA-1", "SHA1", []string{"sha1", "sha-1"}, 40},
	SHA256:     {"SHA-256", "SHA256", []string{"sha256", "sha-256"}, 64},
	SHA384:     {"SHA-384", "SHA384", []string{"sha384", "sha-384"}, 96},
	SHA512:     {"SHA-512", "SHA512", []string{"sha512", "sha-512"}, 128},
	SHA3_256:   {"SHA3-256", "SHA3-256", []string{"sha3-256", "sha3_256"}, 64},
	SHA3_384:   {"SHA3-384", "SHA3-384", []string{"sha3-384", "sha3_384"}, 96},
	SHA3_512:   {"SHA3-512", "SHA3-512", []string{"sha3-512", "sha3_512"}, 128},
	BLAKE2b256: {"BLAKE2b-256", "BLAKE2b-256", []string{"blake2b-256", "blake2b_256", "blake2b256"}, 64},
	BLAKE2b384: {"BLAKE2b-384", "BLAKE2b-384", []string{"blake2b-384", "blake2b_384", "blake2b384"}, 96},
	BLAKE2b512: {"BLAKE2b-512", "BLAKE2b-512", []string{"blake2b-512", "blake2b_512", "blake2b512", "blake2b"}, 128},
	BLAKE3:     {"BLAKE3", "BLAKE3", []string{"blake3"}, 64},
}

// algorithmByToken indexes every accepted spelling, lowercased.
var algorithmByToken = func() map[string]HashAlgorithm {
	m := map[string]HashAlgorithm{}
	for alg, sp := range algorithmTable {
		m[strings.ToLower(sp.cyclonedx)] = alg
		m[strings.ToLower(sp.spdx)] = alg
		for _, tok := range sp.tokens {
			m[tok] = alg
		}
	}
	return m
}()

// ParseHashAlgorithm accepts any CycloneDX, SPDX or lockfile spelling,
// case-insensitively.
func ParseHashAlgorithm(token string) (HashAlgorithm, bool) {
	alg, ok := algorithmByToken[strings.ToLower(strings.TrimSpace(token))]
	return alg, ok
}

// CycloneDX returns the CycloneDX spelling ("SHA-256").
func (a HashAlgorithm) CycloneDX() string { return algorithmTable[a].cyclonedx }

// SPDX returns the SPDX spelling ("SHA256").
func (a HashAlgorithm) SPDX() string { return algorithmTable[a].spdx }

// HexLen returns the expected digest length in hex characters.
func (a HashAlgorithm) HexLen() int { return algorithmTable[a].hexLen }

func (a HashAlgorithm) String() string {
	if s := a.CycloneDX(); s != "" {
		return s
	}
	return "unknown"
}

// PackageHash is one hash of one artifact of a package version, as found in
// a lockfile. Value is lowercase hex.
type PackageHash struct {
	Name         string
	Version      string
	Algorithm    HashAlgorithm
	Value        string
	ArtifactType string // "wheel", "sdist", "crate", "tarball", ...
	Filename     string // artifact file name when the lockfile records one
}

// Hash is a hash attached to an SBOM component.
type Hash struct {
	Algorithm HashAlgorithm
	Value     string
}
