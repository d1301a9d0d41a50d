package ota

import "github.com/bottlerocket-os/modota/pkg/marker"

// Package is an immutable view of an offered upgrade artifact.
type Package struct {
	url         string
	fileName    string
	version     string
	module      string
	sign        string
	signMethod  string
	accessToken string
}

// PackageOption sets optional package metadata.
type PackageOption func(*Package)

// WithSign attaches the package signature. An empty sign means the package is
// unsigned; an empty method is taken as SHA256.
func WithSign(sign, method string) PackageOption {
	return func(p *Package) {
		p.sign = sign
		p.signMethod = method
		if sign != "" && method == "" {
			p.signMethod = marker.SignMethodSHA256
		}
	}
}

// WithAccessToken attaches a bearer token used to fetch the package.
func WithAccessToken(token string) PackageOption {
	return func(p *Package) {
		p.accessToken = token
	}
}

// NewPackage describes the package at url to be saved as fileName.
func NewPackage(module, version, url, fileName string, opts ...PackageOption) *Package {
	p := &Package{
		url:      url,
		fileName: fileName,
		version:  version,
		module:   module,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Package) URL() string         { return p.url }
func (p *Package) FileName() string    { return p.fileName }
func (p *Package) Version() string     { return p.version }
func (p *Package) Module() string      { return p.module }
func (p *Package) SignMethod() string  { return p.signMethod }
func (p *Package) AccessToken() string { return p.accessToken }

// Sign returns the signature and whether the package carries one.
func (p *Package) Sign() (string, bool) {
	return p.sign, p.sign != ""
}
