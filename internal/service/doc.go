// Package service contains the application use cases. It orchestrates the
// generation adapters, the object store and the stores in internal/store,
// and depends only on their interfaces.
package service
