package upgrade

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/bottlerocket-os/modota/pkg/marker"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/pkg/errors"
)

// FileDigest returns the lower case hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open package")
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "read package")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verify checks the downloaded file against the package signature. Unsigned
// packages pass.
func verify(path string, pkg *ota.Package) *ota.Failure {
	sign, signed := pkg.Sign()
	if !signed {
		return nil
	}
	if !strings.EqualFold(pkg.SignMethod(), marker.SignMethodSHA256) {
		return ota.Fail(ota.CodeCheckFailed, "unsupported sign method %q", pkg.SignMethod())
	}
	digest, err := FileDigest(path)
	if err != nil {
		return ota.FailWith(ota.CodeInnerError, err)
	}
	if digest != sign {
		return ota.Fail(ota.CodeCheckFailed, "sign verify failed")
	}
	return nil
}
