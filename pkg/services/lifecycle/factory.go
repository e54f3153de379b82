package lifecycle

import (
	"fmt"

	"github.com/de-tools/autofixer/pkg/services/config"
	"github.com/de-tools/autofixer/pkg/services/registry"
	"github.com/de-tools/autofixer/pkg/services/remote"
)

// NewFromConfig builds the caller and registry for backend and returns a controller
// owning both.
func NewFromConfig(backend config.BackendConfig) (*DefaultController, error) {
	caller, err := remote.NewCaller(remote.Options{
		BaseURL:      backend.BaseURL,
		Timeout:      backend.Timeout(),
		MaxRetries:   backend.MaxRetries,
		RetryBackoff: backend.RetryBackoff(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend caller: %w", err)
	}
	return NewController(registry.NewRegistry(caller), caller), nil
}
