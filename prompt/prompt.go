// Package prompt holds the prompt catalog used by the assistant agents. The
// catalog is a YAML document embedded in the binary; a file with the same
// shape can override it at runtime. Entries are rendered with text/template.
package prompt

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/hupe1980/healthbot/model"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// ErrUnknownPrompt is returned when rendering a name that is not in the catalog.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Data is the input of every prompt template. Prompts use the subset of
// fields relevant to them.
type Data struct {
	Query     string
	Symptoms  []string
	Region    string
	Topic     string
	Sources   []string
	Outputs   []Output
	Memory    string
	Recall    bool
	Emergency bool
}

// Output is a named agent output listed in a prompt.
type Output struct {
	Name string
	Text string
}

// Template is one catalog entry. System is optional.
type Template struct {
	Description string `yaml:"description"`
	System      string `yaml:"system"`
	User        string `yaml:"user"`

	system *template.Template
	user   *template.Template
}

// Catalog is a parsed, ready to render set of prompts. It is immutable and
// safe for concurrent use.
type Catalog struct {
	templates map[string]*Template
}

// Load parses the embedded default catalog.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustLoad is like Load but panics on error. The embedded catalog is covered
// by tests, so a failure here is a build defect.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}

	return c
}

// LoadFile parses the catalog at path and layers it over the embedded
// defaults: entries in the file replace entries with the same name.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog: %w", err)
	}

	base, err := Load()
	if err != nil {
		return nil, err
	}

	override, err := Parse(data)
	if err != nil {
		return nil, err
	}

	for name, t := range override.templates {
		base.templates[name] = t
	}

	return base, nil
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	raw := map[string]*Template{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	for name, t := range raw {
		if t == nil || strings.TrimSpace(t.User) == "" {
			return nil, fmt.Errorf("prompt %q has no user template", name)
		}

		var err error

		if t.user, err = template.New(name + ".user").Funcs(funcs).Parse(t.User); err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}

		if t.System != "" {
			if t.system, err = template.New(name + ".system").Funcs(funcs).Parse(t.System); err != nil {
				return nil, fmt.Errorf("prompt %q: %w", name, err)
			}
		}
	}

	return &Catalog{templates: raw}, nil
}

// Names lists the prompts in the catalog.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}

	return names
}

// Render executes the named prompt with data and returns it as a model
// request with an optional system prompt and a single user message.
func (c *Catalog) Render(name string, data Data) (model.Request, error) {
	t, ok := c.templates[name]
	if !ok {
		return model.Request{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}

	user, err := execute(t.user, data)
	if err != nil {
		return model.Request{}, fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	req := model.Request{Messages: []model.Message{model.UserMessage(user)}}

	if t.system != nil {
		if req.System, err = execute(t.system, data); err != nil {
			return model.Request{}, fmt.Errorf("failed to render prompt %s: %w", name, err)
		}
	}

	return req, nil
}

func execute(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items any) string {
		switch v := items.(type) {
		case []string:
			return strings.Join(v, sep)
		case []any:
			strItems := make([]string, len(v))
			for i, item := range v {
				strItems[i] = fmt.Sprintf("%v", item)
			}
			return strings.Join(strItems, sep)
		case nil:
			return ""
		default:
			return fmt.Sprintf("%v", v)
		}
	},
}
