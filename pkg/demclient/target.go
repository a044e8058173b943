package demclient

import (
	"context"
	"net/http"
)

func (c *Client) ListTargets(ctx context.Context) ([]Target, error) {
	var out []Target
	err := c.do(ctx, http.MethodGet, "/target", nil, &out)
	return out, err
}

func (c *Client) CreateTarget(ctx context.Context, t Target) (Target, error) {
	var out Target
	err := c.do(ctx, http.MethodPost, "/target", t, &out)
	return out, err
}

func (c *Client) GetTarget(ctx context.Context, alias string) (Target, error) {
	var out Target
	err := c.do(ctx, http.MethodGet, "/target/"+pathEscape(alias), nil, &out)
	return out, err
}

// Refresh asks the daemon to immediately reconfigure (re-dispatch) alias's
// full configuration to the physical target.
func (c *Client) Refresh(ctx context.Context, alias string) error {
	return c.do(ctx, http.MethodPost, "/target/"+pathEscape(alias), map[string]string{"op": "reset"}, nil)
}

func (c *Client) UpdateTarget(ctx context.Context, alias string, t Target) (Target, error) {
	var out Target
	err := c.do(ctx, http.MethodPut, "/target/"+pathEscape(alias), t, &out)
	return out, err
}

func (c *Client) RenameTarget(ctx context.Context, alias, newAlias string) (Target, error) {
	var out Target
	err := c.do(ctx, http.MethodPatch, "/target/"+pathEscape(alias), Target{Alias: newAlias}, &out)
	return out, err
}

func (c *Client) DeleteTarget(ctx context.Context, alias string) error {
	return c.do(ctx, http.MethodDelete, "/target/"+pathEscape(alias), nil, nil)
}

func (c *Client) TargetUsage(ctx context.Context, alias string) (Usage, error) {
	var out Usage
	err := c.do(ctx, http.MethodGet, "/target/"+pathEscape(alias)+"/usage", nil, &out)
	return out, err
}

func (c *Client) TargetLogPage(ctx context.Context, alias string) ([]LogPageEntry, error) {
	var out []LogPageEntry
	err := c.do(ctx, http.MethodGet, "/target/"+pathEscape(alias)+"/logpage", nil, &out)
	return out, err
}

func (c *Client) SetPortid(ctx context.Context, target string, portid int, p Portid) (Portid, error) {
	var out Portid
	path := "/target/" + pathEscape(target) + "/portid/" + itoa(portid)
	err := c.do(ctx, http.MethodPut, path, p, &out)
	return out, err
}

func (c *Client) DeletePortid(ctx context.Context, target string, portid int) error {
	path := "/target/" + pathEscape(target) + "/portid/" + itoa(portid)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
