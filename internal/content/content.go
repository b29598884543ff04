// Package content loads the landing page copy.
package content

import (
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSite []byte

// Link is a labelled anchor.
type Link struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

// Hero is the top section of the page.
type Hero struct {
	Title        string `yaml:"title" json:"title"`
	Lead         string `yaml:"lead" json:"lead"`
	Emphasis     string `yaml:"emphasis" json:"emphasis"`
	PrimaryCTA   Link   `yaml:"primaryCta" json:"primaryCta"`
	SecondaryCTA Link   `yaml:"secondaryCta" json:"secondaryCta"`
}

// Feature is one feature card.
type Feature struct {
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
}

// Step is one "How it works" entry.
type Step struct {
	Step  string `yaml:"step" json:"step"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
	Icon  string `yaml:"icon" json:"icon"`
}

// DemoCopy holds the labels of the interactive demo.
type DemoCopy struct {
	Progress          []string `yaml:"progress" json:"progress"`
	DropTitle         string   `yaml:"dropTitle" json:"dropTitle"`
	DropHint          string   `yaml:"dropHint" json:"dropHint"`
	BrowseLabel       string   `yaml:"browseLabel" json:"browseLabel"`
	ParsingLabel      string   `yaml:"parsingLabel" json:"parsingLabel"`
	SchemaHint        string   `yaml:"schemaHint" json:"schemaHint"`
	SchemaPlaceholder string   `yaml:"schemaPlaceholder" json:"schemaPlaceholder"`
	SendLabel         string   `yaml:"sendLabel" json:"sendLabel"`
	ResetLabel        string   `yaml:"resetLabel" json:"resetLabel"`
	CopyLabel         string   `yaml:"copyLabel" json:"copyLabel"`
}

// CallToAction is the closing banner.
type CallToAction struct {
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

// Footer is the page footer.
type Footer struct {
	Owner   string   `yaml:"owner" json:"owner"`
	Tagline string   `yaml:"tagline" json:"tagline"`
	Links   []string `yaml:"links" json:"links"`
}

// Site is the full page copy.
type Site struct {
	Brand        string       `yaml:"brand" json:"brand"`
	Badge        string       `yaml:"badge" json:"badge"`
	Nav          []Link       `yaml:"nav" json:"nav"`
	Hero         Hero         `yaml:"hero" json:"hero"`
	Features     []Feature    `yaml:"features" json:"features"`
	Demo         DemoCopy     `yaml:"demo" json:"demo"`
	HowItWorks   []Step       `yaml:"howItWorks" json:"howItWorks"`
	CallToAction CallToAction `yaml:"callToAction" json:"callToAction"`
	Footer       Footer       `yaml:"footer" json:"footer"`
}

// Default returns the copy embedded in the binary.
func Default() (*Site, error) {
	return Parse(defaultSite)
}

// Load reads site copy from YAML, e.g. an override file next to the binary.
func Load(r io.Reader) (*Site, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading site content: %w", err)
	}
	return Parse(data)
}

// Parse decodes site copy and checks the fields the page cannot render without.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("parsing site content: %w", err)
	}
	if site.Brand == "" {
		return nil, fmt.Errorf("site content: brand is required")
	}
	if len(site.Demo.Progress) == 0 {
		return nil, fmt.Errorf("site content: demo.progress is required")
	}
	return &site, nil
}
