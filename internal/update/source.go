package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/automailpro/internal/client/config"
	"github.com/dmitrijs2005/automailpro/internal/netx"
)

var ErrInvalidS3URL = errors.New("invalid s3 url")

// Downloader is the part of the API client that streams archives.
type Downloader interface {
	Download(ctx context.Context, endpoint string) (io.ReadCloser, error)
	DownloadExtension(ctx context.Context) (io.ReadCloser, error)
}

// HTTPSource downloads Endpoint through the API client.
type HTTPSource struct {
	Client   Downloader
	Endpoint string
}

func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.Client.Download(ctx, s.Endpoint)
}

// ExtensionSource downloads the extension archive with the dedicated
// basic-auth endpoint.
type ExtensionSource struct {
	Client Downloader
}

func (s ExtensionSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.Client.DownloadExtension(ctx)
}

// S3Source fetches s3://bucket/key through a presigned GET URL.
type S3Source struct {
	URL          string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Expires      time.Duration
	HTTP         *http.Client
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidS3URL, err)
	}
	bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidS3URL, raw)
	}
	return bucket, key, nil
}

func (s S3Source) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.Region),
	}
	if s.AccessKey != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")),
			awsconfig.WithSharedConfigFiles([]string{}),
			awsconfig.WithSharedCredentialsFiles([]string{}),
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

// PresignedURL returns the presigned GET URL for the object.
func (s S3Source) PresignedURL(ctx context.Context) (string, error) {
	bucket, key, err := ParseS3URL(s.URL)
	if err != nil {
		return "", err
	}

	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	expires := s.Expires
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	req, err := pc.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return req.URL, nil
}

func (s S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	u, err := s.PresignedURL(ctx)
	if err != nil {
		return nil, err
	}
	hc := s.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	return netx.Get(ctx, hc, u)
}

// Sources picks the program and extension sources from cfg. Endpoint
// entries holding an s3:// URL are served by S3Source, everything else
// goes through the API client.
func Sources(cfg *config.Config, c Downloader, hc *http.Client) (program, extension Source) {
	pick := func(endpoint string, fallback Source) Source {
		raw := cfg.Endpoints[endpoint]
		if !strings.HasPrefix(raw, "s3://") {
			return fallback
		}
		return S3Source{
			URL:          raw,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			HTTP:         hc,
		}
	}

	program = pick(config.EndpointProgramZip, HTTPSource{Client: c, Endpoint: config.EndpointProgramZip})
	extension = pick(config.EndpointDownloadExtension, ExtensionSource{Client: c})
	return program, extension
}
