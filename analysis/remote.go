package analysis

import (
	"context"
	"fmt"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/httpclient"
)

// RemoteService forwards attempts to an external service that reports back
// by posting to the request's CallbackURL with the CallbackToken.
type RemoteService struct {
	name   string
	path   string
	client *httpclient.Client
}

var _ Service = (*RemoteService)(nil)

// NewRemoteService posts requests to path on client's base URL.
func NewRemoteService(name, path string, client *httpclient.Client) *RemoteService {
	if path == "" {
		path = "/invoke"
	}
	return &RemoteService{name: name, path: path, client: client}
}

// Name implements provider.Provider.
func (s *RemoteService) Name() string { return s.name }

// IsAvailable pings the service's health endpoint.
func (s *RemoteService) IsAvailable(ctx context.Context) bool {
	return s.client.Ping(ctx, "/health")
}

// Invoke posts req and expects the service to acknowledge it.
func (s *RemoteService) Invoke(ctx context.Context, req Request) (Accepted, error) {
	if req.CallbackURL == "" {
		return Accepted{}, errors.Internal(fmt.Errorf("remote service %s needs a callback URL", s.name))
	}
	resp, err := httpclient.Post[Accepted](s.client, ctx, s.path, req)
	if err != nil {
		return Accepted{}, httpclient.AppError(s.name, err)
	}
	ack := resp.Data
	if ack.CallbackToken == "" {
		ack.CallbackToken = req.CallbackToken
	}
	return ack, nil
}
