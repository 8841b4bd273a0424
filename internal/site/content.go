// Package site holds the landing page: its editable copy, the HTML
// template, and the images drawn for the architecture diagram and idle
// video placeholders.
package site

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed assets/content.json
var defaultContent []byte

// Content is the copy shown on the page.
type Content struct {
	Title        string       `json:"title"`
	Hero         Hero         `json:"hero"`
	Demo         Demo         `json:"demo"`
	Architecture Architecture `json:"architecture"`
	Features     Features     `json:"features"`
	Footer       Footer       `json:"footer"`
}

type Hero struct {
	Badge     string `json:"badge"`
	Title     string `json:"title"`
	Highlight string `json:"highlight"`
	Subtitle  string `json:"subtitle"`
	Source    string `json:"source"`
	Filter    string `json:"filter"`
}

type Demo struct {
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle"`
	Note           string `json:"note"`
	OriginalLabel  string `json:"originalLabel"`
	ProcessedLabel string `json:"processedLabel"`
}

type Architecture struct {
	Badge    string    `json:"badge"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Layers   []Layer   `json:"layers"`
	Snippets []Snippet `json:"snippets"`
}

// Layer is one box of the architecture flow. Color is a hex string used
// for the diagram.
type Layer struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tech        string `json:"tech"`
	Color       string `json:"color"`
}

type Snippet struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

type Features struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Items    []Feature `json:"items"`
	Stack    []string  `json:"stack"`
}

type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Gradient    string `json:"gradient"`
}

type Footer struct {
	Title     string   `json:"title"`
	Tagline   string   `json:"tagline"`
	Lines     []string `json:"lines"`
	Copyright string   `json:"copyright"`
}

// Default returns the embedded page copy.
func Default() *Content {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("embedded content: %v", err))
	}
	return c
}

// Parse decodes and validates page copy.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads page copy from path.
func LoadFile(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (c *Content) validate() error {
	if c.Title == "" {
		return errors.New("content: title is required")
	}
	if len(c.Architecture.Layers) == 0 {
		return errors.New("content: at least one architecture layer is required")
	}
	for i, l := range c.Architecture.Layers {
		if l.Title == "" {
			return fmt.Errorf("content: architecture layer %d has no title", i)
		}
	}
	return nil
}
