// Package auth builds the authorizing HTTP client used for registry queries.
//
// Registries answer unauthorized requests with a WWW-Authenticate challenge. Basic challenges are
// answered with the configured credentials; bearer challenges are exchanged for a token scoped to
// the repository at the advertised realm. Tokens are kept in a cache shared between clients.
package auth

import (
	"net/http"

	"github.com/sirupsen/logrus"
	orasAuth "oras.land/oras-go/v2/registry/remote/auth"

	"github.com/nicholas-fedor/gitops-image-updater/pkg/types"
)

// UserAgent identifies registry requests; overridden at startup with the build version.
var UserAgent = "gitops-image-updater"

// NewCache returns a token cache safe for concurrent use.
func NewCache() orasAuth.Cache {
	return orasAuth.NewCache()
}

// NewClient returns a client authorizing requests to registry with credentials.
//
// Credentials are only offered to registry, never to other hosts such as a token realm on another
// domain. A nil cache disables token caching.
func NewClient(
	httpClient *http.Client,
	registry string,
	credentials types.RegistryCredentials,
	cache orasAuth.Cache,
) *orasAuth.Client {
	logrus.WithFields(logrus.Fields{
		"registry":    registry,
		"credentials": !credentials.Empty(),
	}).Trace("Creating registry auth client")

	client := &orasAuth.Client{
		Client:     httpClient,
		Cache:      cache,
		Credential: orasAuth.StaticCredential(registry, Credential(credentials)),
	}
	client.SetUserAgent(UserAgent)

	return client
}

// Credential converts registry credentials, mapping empty ones to anonymous access.
func Credential(credentials types.RegistryCredentials) orasAuth.Credential {
	if credentials.Empty() {
		return orasAuth.EmptyCredential
	}

	return orasAuth.Credential{
		Username: credentials.Username,
		Password: credentials.Password,
	}
}
