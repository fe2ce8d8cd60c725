// Package prompts holds the diagnosis prompt templates sent to the evaluation backend.
// Templates live in diagnosis.json and are embedded at compile time.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed diagnosis.json
var diagnosisJSON []byte

// templates parses diagnosis.json once
var templates = sync.OnceValues(func() (map[string]string, error) {
	var t map[string]string
	if err := json.Unmarshal(diagnosisJSON, &t); err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis prompts: %w", err)
	}
	return t, nil
})

// Template returns the diagnosis template stored under key
func Template(key string) (string, error) {
	t, err := templates()
	if err != nil {
		return "", err
	}
	tmpl, ok := t[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return tmpl, nil
}

// MustTemplate is Template for keys the builders depend on. It panics on a missing key.
func MustTemplate(key string) string {
	tmpl, err := Template(key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return tmpl
}

// Keys lists the template keys, sorted
func Keys() ([]string, error) {
	t, err := templates()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Format substitutes {{.Key}} placeholders. Placeholders without a value are left as is.
func Format(template string, data map[string]string) string {
	pairs := make([]string, 0, 2*len(data))
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
