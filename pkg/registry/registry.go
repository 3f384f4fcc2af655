package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"oras.land/oras-go/v2/registry/remote"
	orasAuth "oras.land/oras-go/v2/registry/remote/auth"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/registry/auth"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/registry/helpers"
	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// requestTimeout bounds every registry HTTP request.
const requestTimeout = 30 * time.Second

// maxPages bounds tag list pagination.
const maxPages = 1000

// Docker Hub serves the distribution API from a different host than its image domain.
const (
	dockerHubDomain = "docker.io"
	dockerHubHost   = "registry-1.docker.io"
)

// Errors for registry operations.
var (
	errFailedCreateRepository = errors.New("failed to create repository client")
	errFailedListTags         = errors.New("failed to list tags")
	errTooManyPages           = errors.New("tag list pagination did not terminate")
)

// Client lists tags over the registry distribution API.
type Client struct {
	http        *http.Client
	credentials types.RegistryCredentials
	cache       orasAuth.Cache
}

// NewHTTPClient returns an HTTP client pacing requests to rps per registry host.
func NewHTTPClient(rps float64) *http.Client {
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: NewRateLimitedTransport(http.DefaultTransport, rps),
	}
}

// New creates a Client authenticating every query with credentials.
//
// Tokens obtained from registries are cached across queries.
func New(httpClient *http.Client, credentials types.RegistryCredentials) *Client {
	return &Client{
		http:        httpClient,
		credentials: credentials,
		cache:       auth.NewCache(),
	}
}

// ListTags returns every tag of the repository named by imageRef, following pagination.
//
// Any tag or digest on imageRef is ignored.
func (c *Client) ListTags(ctx context.Context, imageRef string) ([]string, error) {
	domain, path, err := helpers.GetRepository(imageRef)
	if err != nil {
		return nil, err
	}

	if domain == dockerHubDomain {
		domain = dockerHubHost
	}

	repo, err := remote.NewRepository(domain + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCreateRepository, err)
	}

	repo.Client = auth.NewClient(c.http, repo.Reference.Registry, c.credentials, c.cache)

	fields := logrus.Fields{"image": imageRef, "repository": repo.Reference.String()}
	logrus.WithFields(fields).Debug("Listing tags")

	tags := []string{}
	pages := 0

	err = repo.Tags(ctx, "", func(page []string) error {
		pages++
		if pages > maxPages {
			return errTooManyPages
		}

		tags = append(tags, page...)

		return nil
	})
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to list tags")

		if errors.Is(err, errTooManyPages) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", errFailedListTags, err)
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"count": len(tags),
		"pages": pages,
	}).Debug("Listed tags")

	return tags, nil
}
