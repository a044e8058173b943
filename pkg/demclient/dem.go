package demclient

import (
	"context"
	"net/http"
)

// ListDem returns the interfaces the daemon is listening on.
func (c *Client) ListDem(ctx context.Context) ([]Listener, error) {
	var out []Listener
	err := c.do(ctx, http.MethodGet, "/dem", nil, &out)
	return out, err
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/dem", map[string]string{"op": "shutdown"}, nil)
}

// UpdateSignature rotates the auth signature, presenting the current one.
func (c *Client) UpdateSignature(ctx context.Context, oldSig, newSig string) error {
	err := c.do(ctx, http.MethodPost, "/dem/signature", Signature{Old: oldSig, New: newSig}, nil)
	if err == nil {
		c.sig = newSig
	}
	return err
}
