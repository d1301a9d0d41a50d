package upgrade

import (
	"net/url"
	"path"

	"github.com/bottlerocket-os/modota/pkg/event"
	"github.com/bottlerocket-os/modota/pkg/ota"
)

// FromModulePackage converts a notified package for the local module. The
// module named by the platform is not used.
func FromModulePackage(module string, p *event.ModulePackage) *ota.Package {
	return ota.NewPackage(module, p.Version, p.URL, p.FileName, ota.WithSign(p.Sign, p.SignMethod))
}

// FromPackage converts a legacy package. Its file is named after the URL.
func FromPackage(module string, p *event.Package) *ota.Package {
	return ota.NewPackage(module, p.Version, p.URL, fileNameOf(p.URL, p.Kind),
		ota.WithSign(p.Sign, p.SignMethod),
		ota.WithAccessToken(p.AccessToken))
}

// FromPackageV2 converts a legacy v2 package.
func FromPackageV2(module string, p *event.PackageV2) *ota.Package {
	return ota.NewPackage(module, p.Version, p.URL, fileNameOf(p.URL, p.Kind),
		ota.WithSign(p.Sign, p.SignMethod))
}

func fileNameOf(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return fallback
	}
	return base
}
