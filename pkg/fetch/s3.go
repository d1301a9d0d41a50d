package fetch

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/bottlerocket-os/modota/pkg/logging"
	"github.com/bottlerocket-os/modota/pkg/ota"
	"github.com/pkg/errors"
)

// S3 fetches packages addressed as s3://bucket/key.
type S3 struct {
	log        logging.Logger
	downloader *s3manager.Downloader
}

// NewS3 creates an S3 fetcher for region. Credentials come from the default
// chain. Options may adjust the session configuration.
func NewS3(region string, tlsConfig *tls.Config, opts ...func(*aws.Config)) (*S3, error) {
	config := aws.NewConfig().
		WithRegion(region).
		WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: tlsConfig,
			},
		})
	for _, opt := range opts {
		opt(config)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create aws session")
	}
	return &S3{
		log: logging.New("fetch-s3"),
		downloader: s3manager.NewDownloader(sess, func(d *s3manager.Downloader) {
			d.Concurrency = 1
		}),
	}, nil
}

func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrap(err, "invalid package url")
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", errors.Errorf("%q is not an s3://bucket/key url", raw)
	}
	return u.Host, key, nil
}

// Fetch implements Fetcher.
func (s *S3) Fetch(ctx context.Context, pkg *ota.Package, dest Destination) error {
	bucket, key, err := parseS3URL(pkg.URL())
	if err != nil {
		return err
	}
	n, err := s.downloader.DownloadWithContext(ctx, dest, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "unable to download s3://%s/%s", bucket, key)
	}
	s.log.WithField("bytes", n).Debug("fetched package")
	return nil
}
