// Package catalog holds the fixed set of ERCOT public report endpoints the
// client can query, with the date key and filters each one accepts.
package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AllCategories selects every endpoint in List.
const AllCategories = "all"

//go:embed endpoints.yaml
var embedded []byte

// Endpoint describes one public report.
type Endpoint struct {
	Name            string   `json:"name" yaml:"name"`
	DateKey         string   `json:"date_key" yaml:"date_key"`
	Path            string   `json:"-" yaml:"path"`
	URL             string   `json:"url" yaml:"-"`
	Summary         string   `json:"summary" yaml:"summary"`
	Category        string   `json:"category" yaml:"category"`
	ValidParameters []string `json:"valid_parameters" yaml:"-"`
}

type document struct {
	BaseURL     string              `yaml:"base_url"`
	AlwaysValid []string            `yaml:"always_valid"`
	Parameters  map[string][]string `yaml:"parameters"`
	Categories  []string            `yaml:"categories"`
	Endpoints   []Endpoint          `yaml:"endpoints"`
}

// Catalog is immutable once built; methods return copies.
type Catalog struct {
	baseURL     string
	names       []string
	byName      map[string]Endpoint
	categories  []string
	alwaysValid map[string]bool
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded document is
// invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(embedded)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded endpoints: %v", defaultErr))
	}
	return defaultCat
}

// Parse builds a catalog from a YAML document.
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if doc.BaseURL == "" {
		return nil, fmt.Errorf("catalog: base_url is required")
	}
	known := make(map[string]bool, len(doc.Categories))
	for _, c := range doc.Categories {
		known[c] = true
	}

	c := &Catalog{
		byName:      make(map[string]Endpoint, len(doc.Endpoints)),
		categories:  append([]string(nil), doc.Categories...),
		alwaysValid: make(map[string]bool, len(doc.AlwaysValid)),
	}
	for _, p := range doc.AlwaysValid {
		c.alwaysValid[p] = true
	}
	for _, ep := range doc.Endpoints {
		if ep.Name == "" || ep.Path == "" {
			return nil, fmt.Errorf("catalog: endpoint %q needs a name and a path", ep.Name)
		}
		if _, dup := c.byName[ep.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate endpoint %q", ep.Name)
		}
		params, ok := doc.Parameters[ep.DateKey]
		if !ok {
			return nil, fmt.Errorf("catalog: endpoint %q has unknown date key %q", ep.Name, ep.DateKey)
		}
		if !known[ep.Category] {
			return nil, fmt.Errorf("catalog: endpoint %q has unknown category %q", ep.Name, ep.Category)
		}
		ep.ValidParameters = append([]string(nil), params...)
		c.byName[ep.Name] = ep
		c.names = append(c.names, ep.Name)
	}
	if err := c.setBaseURL(doc.BaseURL); err != nil {
		return nil, err
	}
	return c, nil
}

// WithBaseURL returns a copy whose endpoint URLs are rooted at base.
func (c *Catalog) WithBaseURL(base string) (*Catalog, error) {
	cp := &Catalog{
		names:       c.names,
		byName:      make(map[string]Endpoint, len(c.byName)),
		categories:  c.categories,
		alwaysValid: c.alwaysValid,
	}
	for k, v := range c.byName {
		cp.byName[k] = v
	}
	if err := cp.setBaseURL(base); err != nil {
		return nil, err
	}
	return cp, nil
}

func (c *Catalog) setBaseURL(base string) error {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog: invalid base URL %q", base)
	}
	c.baseURL = base
	for name, ep := range c.byName {
		ep.URL = base + ep.Path
		c.byName[name] = ep
	}
	return nil
}

func (c *Catalog) BaseURL() string { return c.baseURL }

// Names lists endpoint names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Lookup returns the endpoint or an *UnknownEndpointError.
func (c *Catalog) Lookup(name string) (Endpoint, error) {
	ep, ok := c.byName[name]
	if !ok {
		return Endpoint{}, &UnknownEndpointError{Name: name, Available: c.Names()}
	}
	ep.ValidParameters = append([]string(nil), ep.ValidParameters...)
	return ep, nil
}

// List returns the endpoints of one category, or all of them for "all" or
// an empty category.
func (c *Catalog) List(category string) ([]Endpoint, error) {
	if category == "" {
		category = AllCategories
	}
	if category != AllCategories {
		found := false
		for _, k := range c.categories {
			if k == category {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s. Available: %s", ErrUnknownCategory, category,
				strings.Join(append(c.Categories(), AllCategories), ", "))
		}
	}
	out := make([]Endpoint, 0, len(c.names))
	for _, name := range c.names {
		ep, _ := c.Lookup(name)
		if category == AllCategories || ep.Category == category {
			out = append(out, ep)
		}
	}
	return out, nil
}
