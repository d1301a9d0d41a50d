package event

import (
	"encoding/json"

	"github.com/bottlerocket-os/modota/pkg/marker"
	"github.com/pkg/errors"
)

// ModulePackage is the package offered by module_upgrade_notify and
// module_package_get_response.
type ModulePackage struct {
	URL        string `json:"url"`
	FileName   string `json:"file_name"`
	Version    string `json:"version"`
	Module     string `json:"module"`
	Sign       string `json:"sign,omitempty"`
	SignMethod string `json:"sign_method,omitempty"`
}

// ReportInfo is the platform's acknowledgement of a device report.
type ReportInfo struct {
	Code int `json:"code"`
	// Raw holds every parameter of the response, including Code.
	Raw map[string]interface{} `json:"-"`
}

// OK reports whether the platform accepted the report.
func (r *ReportInfo) OK() bool {
	return r.Code == marker.SuccessCode
}

// QueryInfo is the platform's legacy version query.
type QueryInfo struct {
	Raw map[string]interface{} `json:"-"`
}

// Package is a legacy single-version firmware or software package.
type Package struct {
	// Kind is taken from the event type, it is not on the wire.
	Kind        marker.PackageKind `json:"-"`
	URL         string             `json:"url"`
	Version     string             `json:"version"`
	FileSize    int64              `json:"file_size,omitempty"`
	AccessToken string             `json:"access_token,omitempty"`
	Expires     int64              `json:"expires,omitempty"`
	Sign        string             `json:"sign,omitempty"`
	SignMethod  string             `json:"sign_method,omitempty"`
}

// PackageV2 is the legacy package pushed by the *_v2 events, which are
// fetched without an access token.
type PackageV2 struct {
	Kind       marker.PackageKind `json:"-"`
	URL        string             `json:"url"`
	Version    string             `json:"version"`
	Expires    int64              `json:"expires,omitempty"`
	Sign       string             `json:"sign,omitempty"`
	SignMethod string             `json:"sign_method,omitempty"`
}

// Decode converts event parameters into the typed payload pointed to by into.
func Decode(params map[string]interface{}, into interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "unable to encode parameters")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.Wrapf(err, "unable to decode parameters into %T", into)
	}
	return nil
}

// DecodeReportInfo decodes a response's parameters.
func DecodeReportInfo(params map[string]interface{}) (*ReportInfo, error) {
	info := &ReportInfo{}
	if err := Decode(params, info); err != nil {
		return nil, err
	}
	info.Raw = params
	return info, nil
}
