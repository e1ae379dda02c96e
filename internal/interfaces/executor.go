package interfaces

import (
	"context"

	"github.com/ternarybob/tento/internal/models"
)

// RequestExecutor - sends raw HTTP request text to a target
type RequestExecutor interface {
	// Execute parses and sends one raw request. Failures are embedded
	// in the returned response (status 0 plus error), never raised, so
	// a batch continues past individual transport faults.
	Execute(ctx context.Context, content string, config models.HTTPConfig) *models.HTTPResponse
}

// BatchExecutor - drives a whole generated sequence through one client
type BatchExecutor interface {
	RequestExecutor

	// ExecuteBatch sends every request in the configured mode and
	// delivers results through onResult in ordinal order. Returns the
	// context error when the batch was cancelled mid-flight.
	ExecuteBatch(ctx context.Context, contents []string, config models.HTTPConfig, onResult func(ordinal int, response *models.HTTPResponse)) error
}
