// Package tlsconf builds the certificate validation policy used for package
// downloads and the broker connection.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"

	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/pkg/errors"
)

// Policy selects how peers are verified. The zero value verifies against the
// system roots.
type Policy struct {
	// CAFile is a PEM bundle added to the system roots.
	CAFile string `toml:"ca_file"`
	// InsecureSkipVerify disables certificate validation.
	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// Config returns the TLS configuration for the policy.
func (p Policy) Config() (*tls.Config, error) {
	config := &tls.Config{MinVersion: tls.VersionTLS12}
	if p.InsecureSkipVerify {
		logging.New("tlsconf").Warn("certificate validation is disabled")
		config.InsecureSkipVerify = true
	}
	if p.CAFile == "" {
		return config, nil
	}

	pem, err := ioutil.ReadFile(p.CAFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read CA bundle")
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Errorf("no certificates found in %s", p.CAFile)
	}
	config.RootCAs = pool
	return config, nil
}
