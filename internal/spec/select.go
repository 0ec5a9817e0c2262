package spec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// SelectOption configures which methods Select keeps.
type SelectOption func(*selectConfig)

type selectConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	patterns    []string
}

// WithIncludeTags keeps only methods that have at least one of the given tags.
func WithIncludeTags(tags []string) SelectOption {
	return func(c *selectConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes methods that have any of the given tags.
func WithExcludeTags(tags []string) SelectOption {
	return func(c *selectConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

// WithMethodPatterns keeps only methods whose name matches at least one of
// the provided regular expressions.
func WithMethodPatterns(patterns []string) SelectOption {
	return func(c *selectConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			c.patterns = append(c.patterns, p)
		}
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// Select returns the methods of doc allowed by the options, in document
// order. Without options every method is returned.
func Select(doc *Document, opts ...SelectOption) ([]MethodRecord, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	cfg := &selectConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	res := make([]*regexp.Regexp, 0, len(cfg.patterns))
	for _, p := range cfg.patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid method pattern %q: %w", p, err)
		}
		res = append(res, re)
	}

	out := make([]MethodRecord, 0, len(doc.Methods))
	for _, m := range doc.Methods {
		if !allowByTags(m.Tags, cfg) {
			continue
		}
		if !allowByName(m.Name, res) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func allowByTags(tags []string, cfg *selectConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, no := cfg.excludeTags[t]; no {
			return false
		}
	}
	return true
}

func allowByName(name string, res []*regexp.Regexp) bool {
	if len(res) == 0 {
		return true
	}
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Tags returns the distinct tag names used by methods, sorted.
func Tags(methods []MethodRecord) []string {
	seen := map[string]struct{}{}
	for _, m := range methods {
		for _, t := range m.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
