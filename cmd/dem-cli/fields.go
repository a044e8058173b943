package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseFields turns CLI `key=value` arguments into a map, the convention
// `set`/`add` use for their trailing field list (spec.md §6: verbs are a
// CLI convenience over the JSON bodies pkg/restapi accepts).
func parseFields(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field %q, expected key=value", a)
		}
		out[k] = v
	}
	return out, nil
}

func fieldInt(fields map[string]string, key string, def int) (int, error) {
	v, ok := fields[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

func fieldBool(fields map[string]string, key string, def bool) bool {
	v, ok := fields[key]
	if !ok {
		return def
	}
	return v == "true" || v == "1" || v == "yes"
}

func fieldUint16(fields map[string]string, key string, def uint16) (uint16, error) {
	v, ok := fields[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return uint16(n), nil
}
