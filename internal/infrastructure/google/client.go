// Package google talks to the Cloud Vision, Translation and Natural Language REST APIs.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

type Options struct {
	APIKey          string
	CredentialsFile string
	VisionURL       string
	TranslateURL    string
	LanguageURL     string
	Timeout         time.Duration
	HTTPClient      *http.Client

	ResilienceExecutor *resilience.Executor
}

type Client struct {
	httpClient   *http.Client
	apiKey       string
	visionURL    string
	translateURL string
	languageURL  string
	executor     *resilience.Executor
}

var ErrNoCredentials = errors.New("google: no api key or credentials configured")

// New builds a client authenticated by API key, a service account file, or application default credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := opts.HTTPClient
	switch {
	case httpClient != nil:
	case strings.TrimSpace(opts.APIKey) != "":
		httpClient = &http.Client{Timeout: timeout}
	case strings.TrimSpace(opts.CredentialsFile) != "":
		raw, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		creds, err := googleauth.CredentialsFromJSON(ctx, raw, cloudPlatformScope)
		if err != nil {
			return nil, domain.WrapError(domain.ErrUnauthorized, "google credentials", err)
		}
		httpClient = oauth2.NewClient(ctx, creds.TokenSource)
		httpClient.Timeout = timeout
	default:
		creds, err := googleauth.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
		}
		httpClient = oauth2.NewClient(ctx, creds.TokenSource)
		httpClient.Timeout = timeout
	}

	return &Client{
		httpClient:   httpClient,
		apiKey:       strings.TrimSpace(opts.APIKey),
		visionURL:    trimBase(opts.VisionURL, "https://vision.googleapis.com"),
		translateURL: trimBase(opts.TranslateURL, "https://translation.googleapis.com"),
		languageURL:  trimBase(opts.LanguageURL, "https://language.googleapis.com"),
		executor:     opts.ResilienceExecutor,
	}, nil
}

func trimBase(url, fallback string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		url = fallback
	}
	return strings.TrimRight(url, "/")
}
