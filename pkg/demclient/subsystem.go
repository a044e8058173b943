package demclient

import (
	"context"
	"net/http"
)

func (c *Client) SetSubsystem(ctx context.Context, target string, s Subsystem) (Subsystem, error) {
	var out Subsystem
	path := "/target/" + pathEscape(target) + "/subsystem/" + pathEscape(s.SubNQN)
	err := c.do(ctx, http.MethodPut, path, s, &out)
	return out, err
}

func (c *Client) DeleteSubsystem(ctx context.Context, target, subnqn string) error {
	path := "/target/" + pathEscape(target) + "/subsystem/" + pathEscape(subnqn)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) LinkSubsysHost(ctx context.Context, target, subnqn, host string) error {
	path := "/target/" + pathEscape(target) + "/subsystem/" + pathEscape(subnqn) + "/host/" + pathEscape(host)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *Client) UnlinkSubsysHost(ctx context.Context, target, subnqn, host string) error {
	path := "/target/" + pathEscape(target) + "/subsystem/" + pathEscape(subnqn) + "/host/" + pathEscape(host)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) SetNamespace(ctx context.Context, target, subnqn string, ns Namespace) (Namespace, error) {
	var out Namespace
	path := "/target/" + pathEscape(target) + "/subsystem/" + pathEscape(subnqn) + "/ns/" + itoa(ns.NSID)
	err := c.do(ctx, http.MethodPut, path, ns, &out)
	return out, err
}

func (c *Client) DeleteNamespace(ctx context.Context, target, subnqn string, nsid int) error {
	path := "/target/" + pathEscape(target) + "/subsystem/" + pathEscape(subnqn) + "/ns/" + itoa(nsid)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
