package perception

import "context"

// OfflineClient is used when no provider is configured. Every call fails
// with ErrUnavailable so callers go straight to their fallbacks.
type OfflineClient struct{}

func (OfflineClient) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (OfflineClient) CompleteWithSystem(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}
