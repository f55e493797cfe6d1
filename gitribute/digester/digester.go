package digester

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

const sidecarExt = ".digest"

// Of returns the SHA256 hex digest of content.
func Of(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}

// Changed reports whether edited differs from
// original.
func Changed(original string, edited string) bool {
	return Of([]byte(original)) != Of([]byte(edited))
}

// OfFile computes the digest of the file at path.
// Returns empty string with no error if the file does
// not exist.
func OfFile(path string) (result string, retErr error) {
	const errCtx = "calculating digest"

	fi, err := os.Open(path) //nolint:gosec // path is caller-provided
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := sha256.New()

	if _, err := io.Copy(ha, fi); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// Stored reads the digest kept in the .digest
// companion of path. Returns empty string with no
// error if there is none.
func Stored(path string) (string, error) {
	const errCtx = "getting stored digest"

	digest, err := os.ReadFile(path + sidecarExt) //nolint:gosec // path is caller-provided
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return string(digest), nil
}

// Save writes the digest of the file at path to its
// .digest companion.
func Save(path string) error {
	const errCtx = "saving digest"

	digest, err := OfFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(
		path+sidecarExt, []byte(digest), 0o600,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Modified reports whether the file at path no longer
// matches its stored digest. A file without a stored
// digest counts as modified.
func Modified(path string) (bool, error) {
	const errCtx = "checking digest"

	calc, err := OfFile(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	stored, err := Stored(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return stored == "" || calc != stored, nil
}

// Remove deletes the .digest companion of path, if
// any.
func Remove(path string) error {
	err := os.Remove(path + sidecarExt)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing digest: %w", err)
	}

	return nil
}
