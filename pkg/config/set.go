package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Set assigns value to the field addressed by its dotted JSON path, e.g.
// "ai_config.remote.api_key" or "proxy_config.enabled".
func (c *Config) Set(key, value string) error {
	field, err := lookup(reflect.ValueOf(c).Elem(), key)
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		field.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s expects an integer, got %q", key, value)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s expects a number, got %q", key, value)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("%s is not a settable value", key)
	}
	return nil
}

// Get returns the field addressed by key formatted as a string.
func (c *Config) Get(key string) (string, error) {
	field, err := lookup(reflect.ValueOf(c).Elem(), key)
	if err != nil {
		return "", err
	}
	if field.Kind() == reflect.Struct {
		return "", fmt.Errorf("%s is a section, not a value", key)
	}
	return fmt.Sprint(field.Interface()), nil
}

// Keys lists every settable dotted key, sorted.
func Keys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	sort.Strings(keys)
	return keys
}

func lookup(v reflect.Value, key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, fmt.Errorf("empty key")
	}
	for _, part := range strings.Split(key, ".") {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("unknown key %q", key)
		}
		next, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key %q", key)
		}
		v = next
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, name, keys)
			continue
		}
		*keys = append(*keys, name)
	}
}

func jsonName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
