package fetch

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// HTTP fetches packages over HTTP(S).
type HTTP struct {
	log    logging.Logger
	client *resty.Client
}

// NewHTTP creates an HTTP fetcher verifying servers with tlsConfig. A
// positive timeout bounds each whole transfer.
func NewHTTP(tlsConfig *tls.Config, timeout time.Duration) *HTTP {
	client := resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "application/octet-stream")
	if tlsConfig != nil {
		client.SetTLSClientConfig(tlsConfig)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTP{
		log:    logging.New("fetch-http"),
		client: client,
	}
}

// Fetch implements Fetcher. The package's access token, when present, is
// sent as a bearer token.
func (h *HTTP) Fetch(ctx context.Context, pkg *ota.Package, dest Destination) error {
	req := h.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if token := pkg.AccessToken(); token != "" {
		req.SetAuthToken(token)
	}

	resp, err := req.Get(pkg.URL())
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() || resp.StatusCode() >= 300 {
		return errors.Errorf("unexpected response status %s", resp.Status())
	}

	n, err := io.Copy(dest, body)
	if err != nil {
		return errors.Wrapf(err, "transfer interrupted after %d bytes", n)
	}
	h.log.WithField("bytes", n).Debug("fetched package")
	return nil
}
