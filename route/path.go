// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"strings"
)

// JoinPath combines a module prefix with a route path into a single URL
// template.
//
// A missing leading "/" on the prefix is added and a single trailing "/"
// is stripped from the prefix and from the result, so "/hello" and "/hello/"
// joined with "/" are both "/hello". Parameters written as ":name" are
// rewritten to "{name}".
func JoinPath(prefix, path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		return "", InvalidRouteError{Reason: "path must begin with /: " + path}
	}
	if strings.Contains(path, "//") {
		return "", InvalidRouteError{Reason: "empty path segment: " + path}
	}
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	url := prefix + path
	if len(url) > 1 {
		url = strings.TrimSuffix(url, "/")
	}
	if url == "/" {
		return url, nil
	}

	segments := strings.Split(url[1:], "/")
	for i, seg := range segments {
		var err error
		segments[i], err = normalizeSegment(url, seg)
		if err != nil {
			return "", err
		}
	}
	return "/" + strings.Join(segments, "/"), nil
}

func normalizeSegment(url, seg string) (string, error) {
	if seg == "" {
		return "", InvalidRouteError{Reason: "empty path segment: " + url}
	}

	if name, ok := strings.CutPrefix(seg, ":"); ok {
		if !validParamName(name) {
			return "", InvalidRouteError{Reason: "invalid path parameter: " + url}
		}
		return "{" + name + "}", nil
	}

	open := strings.Count(seg, "{")
	closing := strings.Count(seg, "}")
	if open == 0 && closing == 0 {
		return seg, nil
	}
	if open != 1 || closing != 1 || !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
		return "", InvalidRouteError{Reason: "malformed path parameter: " + url}
	}

	name := seg[1 : len(seg)-1]
	if !validParamName(name) {
		return "", InvalidRouteError{Reason: "invalid path parameter: " + url}
	}
	return seg, nil
}

func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
