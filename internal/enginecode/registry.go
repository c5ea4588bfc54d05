package enginecode

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"partscout/pkg/models"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Template is one structural engine-code shape for a manufacturer family.
type Template struct {
	Manufacturer models.Manufacturer `json:"manufacturer"`
	Family       string              `json:"family"`
	Pattern      string              `json:"pattern"`
	Canonical    string              `json:"canonical,omitempty"`

	re    *regexp.Regexp
	order int
}

// Registry maps manufacturers to their ordered templates. It is built once
// and only read afterwards, so it is safe for concurrent use.
type Registry struct {
	manufacturers []models.Manufacturer
	byMfr         map[models.Manufacturer][]*Template
	all           []*Template
}

type registryDoc struct {
	Manufacturers []struct {
		Manufacturer string `yaml:"manufacturer"`
		Templates    []struct {
			Family    string `yaml:"family"`
			Pattern   string `yaml:"pattern"`
			Canonical string `yaml:"canonical"`
		} `yaml:"templates"`
	} `yaml:"manufacturers"`
}

// LoadRegistry parses a pattern document (see patterns.yaml).
func LoadRegistry(r io.Reader) (*Registry, error) {
	var doc registryDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}

	reg := &Registry{byMfr: make(map[models.Manufacturer][]*Template)}
	for _, m := range doc.Manufacturers {
		mfr := models.ParseManufacturer(m.Manufacturer)
		if mfr == "" {
			return nil, fmt.Errorf("patterns: manufacturer tag required")
		}
		if _, dup := reg.byMfr[mfr]; dup {
			return nil, fmt.Errorf("patterns: manufacturer %s listed twice", mfr)
		}
		if len(m.Templates) == 0 {
			return nil, fmt.Errorf("patterns: %s has no templates", mfr)
		}
		reg.manufacturers = append(reg.manufacturers, mfr)

		for _, t := range m.Templates {
			re, err := regexp.Compile(`^(?:` + t.Pattern + `)`)
			if err != nil {
				return nil, fmt.Errorf("patterns: %s %s: %w", mfr, t.Family, err)
			}
			// leftmost-longest so optional suffixes are always consumed
			re.Longest()

			tmpl := &Template{
				Manufacturer: mfr,
				Family:       t.Family,
				Pattern:      t.Pattern,
				Canonical:    t.Canonical,
				re:           re,
				order:        len(reg.all),
			}
			reg.byMfr[mfr] = append(reg.byMfr[mfr], tmpl)
			reg.all = append(reg.all, tmpl)
		}
	}
	if len(reg.all) == 0 {
		return nil, fmt.Errorf("patterns: no manufacturers defined")
	}
	return reg, nil
}

func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patterns file: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return LoadRegistry(bytes.NewReader(defaultPatterns))
})

// DefaultRegistry returns the embedded registry, parsed on first use.
func DefaultRegistry() *Registry {
	reg, err := defaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("embedded engine patterns are invalid: %v", err))
	}
	return reg
}

func (r *Registry) Manufacturers() []models.Manufacturer {
	out := make([]models.Manufacturer, len(r.manufacturers))
	copy(out, r.manufacturers)
	return out
}

// TemplateCount is the number of templates registered for m.
func (r *Registry) TemplateCount(m models.Manufacturer) int {
	return len(r.byMfr[m])
}

// Templates returns copies of every template in registry order.
func (r *Registry) Templates() []Template {
	out := make([]Template, 0, len(r.all))
	for _, t := range r.all {
		out = append(out, *t)
	}
	return out
}

// Contains reports whether any template matches anywhere in the
// normalized string s.
func (r *Registry) Contains(s string) bool {
	for i := range len(s) {
		for _, t := range r.all {
			if loc := t.re.FindStringIndex(s[i:]); loc != nil && loc[1] > 0 {
				return true
			}
		}
	}
	return false
}

type match struct {
	start     int
	length    int
	canonical string
	tmpl      *Template
}

// scan collects, for every start offset, the longest match of each template.
func (r *Registry) scan(s string) []match {
	var out []match
	for i := range len(s) {
		rest := s[i:]
		for _, t := range r.all {
			idx := t.re.FindStringSubmatchIndex(rest)
			if idx == nil || idx[1] == 0 {
				continue
			}
			canonical := rest[:idx[1]]
			if t.Canonical != "" {
				canonical = string(t.re.ExpandString(nil, t.Canonical, rest, idx))
			}
			out = append(out, match{start: i, length: idx[1], canonical: canonical, tmpl: t})
		}
	}
	return out
}

// better orders candidate matches: a match at offset zero beats any
// embedded one, then longer, earlier, from the manufacturer with more
// templates, and finally registry order.
func (r *Registry) better(a, b match) bool {
	if (a.start == 0) != (b.start == 0) {
		return a.start == 0
	}
	if a.length != b.length {
		return a.length > b.length
	}
	if a.start != b.start {
		return a.start < b.start
	}
	if ca, cb := r.TemplateCount(a.tmpl.Manufacturer), r.TemplateCount(b.tmpl.Manufacturer); ca != cb {
		return ca > cb
	}
	return a.tmpl.order < b.tmpl.order
}
