package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/gpml/i18nsync/internal/record"
	"github.com/gpml/i18nsync/internal/transform"
)

// Validate checks the configuration and reports every problem at once.
// Valid language tags are canonicalized in place.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Database == "" {
		add("database must be set")
	}
	if c.Debounce <= 0 {
		add("debounce must be positive, got %s", c.Debounce)
	}
	if c.Workers < 1 {
		add("workers must be at least 1, got %d", c.Workers)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		add("dashboard.port must be between 0 and 65535, got %d", c.Dashboard.Port)
	}

	problems = append(problems, c.validateLanguages()...)
	problems = append(problems, c.validateSources()...)

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (c *Config) validateLanguages() []string {
	var problems []string

	if c.Languages.Default != "" {
		tag, err := language.Parse(c.Languages.Default)
		if err != nil {
			problems = append(problems, fmt.Sprintf("languages.default %q is not a valid language tag", c.Languages.Default))
		} else {
			c.Languages.Default = tag.String()
		}
	}

	seen := make(map[string]bool)
	available := c.Languages.Available[:0]
	for _, lang := range c.Languages.Available {
		tag, err := language.Parse(strings.TrimSpace(lang))
		if err != nil {
			problems = append(problems, fmt.Sprintf("languages.available: %q is not a valid language tag", lang))
			continue
		}
		canonical := tag.String()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		available = append(available, canonical)
	}
	c.Languages.Available = available
	return problems
}

func (c *Config) validateSources() []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Sources) == 0 {
		add("no sources configured")
		return problems
	}

	var (
		messageSources []string
		names          = make(map[string]int)
		paths          = make(map[string]int)
	)
	for i, s := range c.Sources {
		label := fmt.Sprintf("sources[%d]", i)
		if s.Name != "" {
			label = fmt.Sprintf("sources[%d] (%s)", i, s.Name)
		}

		kind, ok := record.ParseKind(s.Kind)
		switch {
		case s.Kind == "":
			add("%s: kind is required", label)
		case !ok:
			add("%s: kind must be %q or %q, got %q", label, record.KindMessage, record.KindTranslation, s.Kind)
		case kind == record.KindMessage:
			messageSources = append(messageSources, label)
		}

		if s.Path == "" {
			add("%s: path is required", label)
		} else {
			clean := filepath.Clean(s.Path)
			if prev, dup := paths[clean]; dup {
				add("%s: path %s is already watched by sources[%d]", label, s.Path, prev)
			} else {
				paths[clean] = i
			}
		}

		if s.Name != "" {
			if prev, dup := names[s.Name]; dup {
				add("%s: name %q is already used by sources[%d]", label, s.Name, prev)
			} else {
				names[s.Name] = i
			}
		}

		if s.Priority < 0 {
			add("%s: priority must be >= 0, got %d", label, s.Priority)
		}
		if s.Priority != 0 && kind == record.KindMessage {
			add("%s: priority only applies to translation sources", label)
		}

		for _, name := range s.Transformers {
			if _, err := transform.Builtin(name); err != nil {
				add("%s: unknown transformer %q (available: %s)", label, name, strings.Join(transform.BuiltinNames(), ", "))
			}
		}
	}

	if len(messageSources) > 1 {
		add("only one message source is allowed, found %d: %s", len(messageSources), strings.Join(messageSources, ", "))
	}
	return problems
}
