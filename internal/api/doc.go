// Package api handles incoming HTTP requests: request decoding and validation,
// error-to-status mapping and response formatting. Handlers translate HTTP
// concerns into calls on the application services and never expose raw
// internal errors to clients.
package api
