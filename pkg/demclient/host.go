package demclient

import (
	"context"
	"net/http"
)

func (c *Client) ListHosts(ctx context.Context) ([]Host, error) {
	var out []Host
	err := c.do(ctx, http.MethodGet, "/host", nil, &out)
	return out, err
}

func (c *Client) CreateHost(ctx context.Context, h Host) (Host, error) {
	var out Host
	err := c.do(ctx, http.MethodPost, "/host", h, &out)
	return out, err
}

func (c *Client) GetHost(ctx context.Context, alias string) (Host, error) {
	var out Host
	err := c.do(ctx, http.MethodGet, "/host/"+pathEscape(alias), nil, &out)
	return out, err
}

func (c *Client) ReplaceHost(ctx context.Context, alias string, h Host) (Host, error) {
	var out Host
	err := c.do(ctx, http.MethodPut, "/host/"+pathEscape(alias), h, &out)
	return out, err
}

func (c *Client) RenameHost(ctx context.Context, alias, newAlias string) (Host, error) {
	var out Host
	err := c.do(ctx, http.MethodPatch, "/host/"+pathEscape(alias), Host{Alias: newAlias}, &out)
	return out, err
}

func (c *Client) DeleteHost(ctx context.Context, alias string) error {
	return c.do(ctx, http.MethodDelete, "/host/"+pathEscape(alias), nil, nil)
}
