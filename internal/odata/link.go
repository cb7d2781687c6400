package odata

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/schema"
)

// Link is an entity link split into its parts.
type Link struct {
	// Root is the service root: everything before the last '/'.
	Root string
	// Set is the entity set name of the last segment.
	Set string
	// Entity is the set's entity type.
	Entity *expr.Type
	// Key is the parsed key value.
	Key ir.IRValue
}

// ParseLink resolves an absolute entity link such as
// http://host/svc/Orders(5) or http://host/svc/Customers('ALFKI').
func ParseLink(m *schema.Model, link string) (Link, error) {
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Link{}, &LinkError{Code: ErrCodeInvalidLink, Link: link, Message: "the link must be absolute"}
	}

	// Split on the escaped path so an encoded '/' inside a key stays in
	// the key.
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	i := strings.LastIndex(path, "/")
	segment, err := url.PathUnescape(path[i+1:])
	if err != nil {
		return Link{}, &LinkError{Code: ErrCodeInvalidLink, Link: link, Message: "the last path segment is not validly escaped"}
	}

	open := strings.IndexByte(segment, '(')
	if open < 0 || !strings.HasSuffix(segment, ")") || open == len(segment)-2 {
		return Link{}, &LinkError{Code: ErrCodeLinkMissingKey, Link: link, Message: "the link does not contain a key"}
	}
	set := segment[:open]
	literal := segment[open+1 : len(segment)-1]

	t, ok := m.EntitySet(set)
	if !ok {
		return Link{}, &LinkError{Code: ErrCodeUnknownEntitySet, Link: link, Message: fmt.Sprintf("unknown entity set %q", set)}
	}

	keyField := t.KeyField()
	if name, value, named := strings.Cut(literal, "="); named {
		if name != keyField {
			return Link{}, &LinkError{Code: ErrCodeInvalidKey, Link: link, Message: fmt.Sprintf("%s is keyed by %s, not %s", set, keyField, name)}
		}
		literal = value
	}
	kt, _ := t.Field(keyField)
	key, err := parseKey(kt, literal)
	if err != nil {
		return Link{}, &LinkError{Code: ErrCodeInvalidKey, Link: link, Message: err.Error()}
	}

	rootPath, err := url.PathUnescape(path[:max(i, 0)])
	if err != nil {
		return Link{}, &LinkError{Code: ErrCodeInvalidLink, Link: link, Message: "the service root is not validly escaped"}
	}
	root := *u
	root.Path, root.RawPath, root.RawQuery, root.Fragment = rootPath, path[:max(i, 0)], "", ""
	return Link{Root: root.String(), Set: set, Entity: t, Key: key}, nil
}

// KeyFromLink returns the key value of an entity link.
func KeyFromLink(m *schema.Model, link string) (ir.IRValue, error) {
	l, err := ParseLink(m, link)
	if err != nil {
		return nil, err
	}
	return l.Key, nil
}

// FormatLink builds the link of the entity with key in set under root.
func FormatLink(root, set string, key ir.IRValue) (string, error) {
	var literal string
	switch k := key.(type) {
	case ir.IRInt:
		literal = strconv.FormatInt(int64(k), 10)
	case ir.IRString:
		literal = "'" + url.PathEscape(strings.ReplaceAll(string(k), "'", "''")) + "'"
	default:
		return "", fmt.Errorf("key must be an int or string, got %T", key)
	}
	return strings.TrimSuffix(root, "/") + "/" + set + "(" + literal + ")", nil
}

func parseKey(t *expr.Type, literal string) (ir.IRValue, error) {
	switch t.Kind {
	case expr.KindInt:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("key %q is not an int", literal)
		}
		return ir.IRInt(n), nil
	case expr.KindString:
		if len(literal) < 2 || literal[0] != '\'' || literal[len(literal)-1] != '\'' {
			return nil, fmt.Errorf("key %q is not a quoted string", literal)
		}
		return ir.IRString(strings.ReplaceAll(literal[1:len(literal)-1], "''", "'")), nil
	}
	return nil, fmt.Errorf("unsupported key type %s", t)
}
