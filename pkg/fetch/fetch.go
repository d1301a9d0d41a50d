// Package fetch retrieves upgrade packages from the locations the platform
// hands out.
package fetch

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/pkg/errors"
)

// Destination receives package content. *os.File satisfies it.
type Destination interface {
	io.Writer
	io.WriterAt
}

// Fetcher writes the content of pkg into dest.
type Fetcher interface {
	Fetch(ctx context.Context, pkg *ota.Package, dest Destination) error
}

// ErrUnsupportedScheme is returned for package URLs no fetcher is registered
// for.
var ErrUnsupportedScheme = errors.New("unsupported package url scheme")

// Mux selects a Fetcher by the package URL's scheme.
type Mux map[string]Fetcher

// Fetch implements Fetcher.
func (m Mux) Fetch(ctx context.Context, pkg *ota.Package, dest Destination) error {
	u, err := url.Parse(pkg.URL())
	if err != nil {
		return errors.Wrap(err, "invalid package url")
	}
	f, ok := m[strings.ToLower(u.Scheme)]
	if !ok {
		return errors.WithMessagef(ErrUnsupportedScheme, "scheme %q", u.Scheme)
	}
	return f.Fetch(ctx, pkg, dest)
}
