// Package registry lists image tags over the registry distribution API.
//
// Key components:
//   - auth: Builds the client answering registry authorization challenges (basic and bearer).
//   - helpers: Splits image references into registry domain and repository path.
//   - Client: Lists every tag of a repository, following Link pagination.
//   - RateLimitedTransport: Paces requests per registry host.
//
// Usage example:
//
//	client := registry.New(registry.NewHTTPClient(10), credentials)
//	tags, err := client.ListTags(ctx, "ghcr.io/org/api")
package registry
