package demclient

import (
	"context"
	"net/http"
)

func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var out []Group
	err := c.do(ctx, http.MethodGet, "/group", nil, &out)
	return out, err
}

func (c *Client) CreateGroup(ctx context.Context, name string) (Group, error) {
	var out Group
	err := c.do(ctx, http.MethodPost, "/group", Group{Name: name}, &out)
	return out, err
}

func (c *Client) GetGroup(ctx context.Context, name string) (Group, error) {
	var out Group
	err := c.do(ctx, http.MethodGet, "/group/"+pathEscape(name), nil, &out)
	return out, err
}

func (c *Client) RenameGroup(ctx context.Context, name, newName string) (Group, error) {
	var out Group
	err := c.do(ctx, http.MethodPatch, "/group/"+pathEscape(name), Group{Name: newName}, &out)
	return out, err
}

func (c *Client) DeleteGroup(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/group/"+pathEscape(name), nil, nil)
}

func (c *Client) LinkGroupTarget(ctx context.Context, group, target string) error {
	return c.do(ctx, http.MethodPost, "/group/"+pathEscape(group)+"/target/"+pathEscape(target), nil, nil)
}

func (c *Client) UnlinkGroupTarget(ctx context.Context, group, target string) error {
	return c.do(ctx, http.MethodDelete, "/group/"+pathEscape(group)+"/target/"+pathEscape(target), nil, nil)
}

func (c *Client) LinkGroupHost(ctx context.Context, group, host string) error {
	return c.do(ctx, http.MethodPost, "/group/"+pathEscape(group)+"/host/"+pathEscape(host), nil, nil)
}

func (c *Client) UnlinkGroupHost(ctx context.Context, group, host string) error {
	return c.do(ctx, http.MethodDelete, "/group/"+pathEscape(group)+"/host/"+pathEscape(host), nil, nil)
}
