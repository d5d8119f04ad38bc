// Package api embeds the OpenAPI document served at /docs/openapi.yaml.
package api

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var Spec []byte

type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Document is the part of the OpenAPI file the server reads back.
type Document struct {
	Info  Info                            `yaml:"info"`
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

func Load() (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(Spec, &doc); err != nil {
		return nil, fmt.Errorf("api.Load: %w", err)
	}
	if doc.Info.Title == "" || doc.Info.Version == "" {
		return nil, fmt.Errorf("api.Load: info.title and info.version are required")
	}
	return &doc, nil
}

// Operations lists the documented routes as "METHOD /path", sorted.
func (d *Document) Operations() []string {
	var ops []string
	for path, methods := range d.Paths {
		for method := range methods {
			switch method {
			case "get", "post", "put", "patch", "delete":
				ops = append(ops, strings.ToUpper(method)+" "+path)
			}
		}
	}
	slices.Sort(ops)
	return ops
}
