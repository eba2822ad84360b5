package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Lookup reports the value of a named setting. os.LookupEnv is one.
type Lookup func(name string) (string, bool)

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom fills a Config from lookup, validates it and loads the header
// synonyms. An empty value counts as unset.
func LoadFrom(lookup Lookup) (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, s := range settings(reflect.ValueOf(cfg).Elem()) {
		if err := s.apply(lookup); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config load: %w", errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	if err := cfg.Import.loadHeaders(); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	return cfg, nil
}

// setting is one tagged field of Config.
type setting struct {
	names    []string
	fallback string
	required bool
	dst      reflect.Value
}

// settings lists the tagged fields of v, descending into nested sections.
func settings(v reflect.Value) []setting {
	var out []setting
	t := v.Type()
	for i := range t.NumField() {
		f, dst := t.Field(i), v.Field(i)
		if !dst.CanSet() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			out = append(out, settings(dst)...)
			continue
		}
		name := f.Tag.Get("env")
		if name == "" {
			continue
		}
		s := setting{
			names:    []string{name},
			fallback: f.Tag.Get("default"),
			required: f.Tag.Get("required") == "true",
			dst:      dst,
		}
		if alt := f.Tag.Get("envAlt"); alt != "" {
			s.names = append(s.names, alt)
		}
		out = append(out, s)
	}
	return out
}

func (s setting) apply(lookup Lookup) error {
	raw := ""
	for _, name := range s.names {
		if v, ok := lookup(name); ok && v != "" {
			raw = v
			break
		}
	}
	if raw == "" {
		if s.required {
			return fmt.Errorf("%s is not set", s.names[0])
		}
		raw = s.fallback
	}
	if raw == "" {
		return nil
	}

	decode, ok := decoders[s.dst.Type()]
	if !ok {
		return fmt.Errorf("%s: no decoder for %s", s.names[0], s.dst.Type())
	}
	v, err := decode(raw)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", s.names[0], raw, err)
	}
	s.dst.Set(v)
	return nil
}

var decoders = map[reflect.Type]func(string) (reflect.Value, error){
	reflect.TypeFor[string]():        decoder(func(s string) (string, error) { return s, nil }),
	reflect.TypeFor[int]():           decoder(strconv.Atoi),
	reflect.TypeFor[int64]():         decoder(func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }),
	reflect.TypeFor[bool]():          decoder(strconv.ParseBool),
	reflect.TypeFor[time.Duration](): decoder(time.ParseDuration),
	reflect.TypeFor[[]string]():      decoder(splitList),
}

func decoder[T any](parse func(string) (T, error)) func(string) (reflect.Value, error) {
	return func(s string) (reflect.Value, error) {
		v, err := parse(s)
		return reflect.ValueOf(v), err
	}
}

// splitList reads a comma-separated list, dropping blank entries.
func splitList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
