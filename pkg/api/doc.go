// Package api provides the HTTP server of the image updater.
// It guards endpoints with a shared secret presented in the X-Secret header.
//
// Key components:
//   - API: Manages server setup and endpoint registration.
//   - RequireSecret: Wraps handlers with shared-secret validation.
//
// Usage example:
//
//	server := api.New("shared-secret", ":8080")
//	server.RegisterFunc("/", server.RequireSecret(updateHandler.Handle))
//	if err := server.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
//
// The package uses a custom ServeMux for routing, supports graceful shutdown,
// and integrates with logrus for logging server operations.
package api
