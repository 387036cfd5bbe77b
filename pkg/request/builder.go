// Package request builds HTTP request descriptors from entity path templates.
// Builders are pure: they never perform I/O.
package request

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/auth"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
	"github.com/leapstack-labs/leapconnect/pkg/mapping"
)

var placeholderRe = regexp.MustCompile(`\{([^}]+)\}`)

// Builder produces request descriptors for the entity types of a registry.
type Builder struct {
	registry *entity.Registry
}

// NewBuilder creates a builder over the given registry.
func NewBuilder(registry *entity.Registry) *Builder {
	return &Builder{registry: registry}
}

// BuildQuery builds a GET request for a query. When the constraints contain
// the entity's identifier, its value becomes the item path segment and the key
// is left out of the query string; without it the collection is addressed.
// The constraint map passed in is not modified.
func (b *Builder) BuildQuery(entityType string, constraints *core.ConstraintMap, cfg core.ConnectionConfig) (*core.Request, error) {
	def, err := b.registry.Lookup(entityType, core.OperationQuery)
	if err != nil {
		return nil, err
	}

	rest := constraints.Clone()
	id, err := takeIdentifier(def, rest)
	if err != nil {
		return nil, err
	}

	path, err := renderPath(def, cfg)
	if err != nil {
		return nil, err
	}
	if id != "" {
		path += "/" + url.PathEscape(id)
	}

	u, err := resolveURL(def, cfg.BaseURL, path)
	if err != nil {
		return nil, err
	}
	u.RawQuery = rest.Values().Encode()

	return &core.Request{
		Method: http.MethodGet,
		URL:    u.String(),
		Accept: core.MediaTypeJSON,
		Auth:   auth.Select(cfg),
	}, nil
}

// BuildCreate builds a POST request against the entity's collection with the
// wire model as JSON body.
func (b *Builder) BuildCreate(entityType string, wire mapping.Wire, cfg core.ConnectionConfig) (*core.Request, error) {
	def, err := b.registry.Lookup(entityType, core.OperationCreate)
	if err != nil {
		return nil, err
	}

	path, err := renderPath(def, cfg)
	if err != nil {
		return nil, err
	}
	u, err := resolveURL(def, cfg.BaseURL, path)
	if err != nil {
		return nil, err
	}

	if wire == nil {
		wire = mapping.Wire{}
	}
	body, err := mapping.Marshal(wire)
	if err != nil {
		return nil, &core.BuildError{EntityType: def.Name, Reason: fmt.Sprintf("failed to encode body: %v", err)}
	}

	return &core.Request{
		Method:      http.MethodPost,
		URL:         u.String(),
		Accept:      core.MediaTypeJSON,
		ContentType: core.MediaTypeJSON,
		Body:        body,
		Auth:        auth.Select(cfg),
	}, nil
}

// takeIdentifier removes the identifier constraint (or one of its aliases)
// from m and returns its value.
func takeIdentifier(def *entity.Definition, m *core.ConstraintMap) (string, error) {
	var id, idKey string
	for _, key := range m.Keys() {
		if !def.IsIdentifier(key) {
			continue
		}
		if idKey != "" {
			return "", &core.BuildError{
				EntityType: def.Name,
				Reason:     fmt.Sprintf("identifier given twice (%s and %s)", idKey, key),
			}
		}
		idKey = key
		id, _ = m.Remove(key)
	}
	return id, nil
}

// renderPath fills the placeholders of the entity's collection path.
func renderPath(def *entity.Definition, cfg core.ConnectionConfig) (string, error) {
	var missing string
	path := placeholderRe.ReplaceAllStringFunc(def.CollectionPath, func(match string) string {
		name := match[1 : len(match)-1]
		switch name {
		case "customerId":
			return url.PathEscape(cfg.CustomerID)
		default:
			missing = name
			return match
		}
	})
	if missing != "" {
		return "", &core.BuildError{EntityType: def.Name, Reason: fmt.Sprintf("unknown path placeholder {%s}", missing)}
	}
	return path, nil
}

// resolveURL appends an escaped entity path to the base URL's path. The base
// URL must be absolute and carry neither a query nor a fragment.
func resolveURL(def *entity.Definition, base, escapedPath string) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, &core.BuildError{EntityType: def.Name, Reason: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &core.BuildError{EntityType: def.Name, Reason: fmt.Sprintf("base URL %q is not absolute", base)}
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return nil, &core.BuildError{EntityType: def.Name, Reason: fmt.Sprintf("base URL %q must not carry a query or fragment", base)}
	}

	full := strings.TrimSuffix(u.EscapedPath(), "/") + escapedPath
	unescaped, err := url.PathUnescape(full)
	if err != nil {
		return nil, &core.BuildError{EntityType: def.Name, Reason: fmt.Sprintf("invalid path %q: %v", full, err)}
	}
	u.Path = unescaped
	u.RawPath = full
	return u, nil
}
