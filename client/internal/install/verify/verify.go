// Package verify checks downloaded artifacts against an expected content digest.
package verify

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"

	berrors "github.com/berrylauncher/berry/client/errors"
)

// Algorithm names accepted as a digest prefix, e.g. "blake3:ab12...".
const (
	SHA512  = "sha512"
	BLAKE2b = "blake2b"
	BLAKE3  = "blake3"
)

const blake3Size = 64

// Verify hashes the file at path and compares the hex digest with expected.
// It never modifies or removes the file.
func Verify(path, expected string) error {
	algorithm, want := ParseDigest(expected)

	got, err := Sum(path, algorithm)
	if err != nil {
		return err
	}

	if got != want {
		return berrors.Newf(berrors.KindIntegrity, "verify", "%s digest mismatch for %s: got %s want %s", algorithm, path, got, want)
	}
	return nil
}

// Sum returns the lower-case hex digest of the file at path.
func Sum(path, algorithm string) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", berrors.New(berrors.KindIO, "open artifact", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", berrors.New(berrors.KindIO, "hash artifact", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseDigest splits an optional "<algorithm>:" prefix off digest.
// Digests without a prefix are SHA-512.
func ParseDigest(digest string) (algorithm, value string) {
	if alg, v, ok := strings.Cut(digest, ":"); ok {
		return strings.ToLower(alg), v
	}
	return SHA512, digest
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "", SHA512:
		return sha512.New(), nil
	case BLAKE2b:
		return blake2b.New512(nil)
	case BLAKE3:
		return blake3Hash{blake3.New()}, nil
	default:
		return nil, berrors.New(berrors.KindIntegrity, "verify", fmt.Errorf("unsupported digest algorithm %q", algorithm))
	}
}

// blake3Hash widens BLAKE3 output to 512 bits.
type blake3Hash struct {
	*blake3.Hasher
}

func (b blake3Hash) Sum(in []byte) []byte {
	out := make([]byte, blake3Size)
	if _, err := b.Digest().Read(out); err != nil {
		return append(in, b.Hasher.Sum(nil)...)
	}
	return append(in, out...)
}

func (b blake3Hash) Size() int {
	return blake3Size
}
