package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type Chapter struct {
	ID      int    `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Summary string `yaml:"summary" json:"summary"`
}

type TextItem struct {
	ID   uint   `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

type Resource struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Link        string `yaml:"link" json:"link"`
}

type Catalog struct {
	Chapters     []Chapter  `yaml:"chapters"`
	Affirmations []TextItem `yaml:"affirmations"`
	Challenges   []TextItem `yaml:"challenges"`
	Templates    []TextItem `yaml:"templates"`
	Resources    []Resource `yaml:"resources"`

	DistractionTools []string `yaml:"distraction_tools" json:"distraction_tools"`
}

func Default() (*Catalog, error) {
	return Parse(embeddedCatalog)
}

func Parse(raw []byte) (*Catalog, error) {
	catalog := &Catalog{}
	if err := yaml.Unmarshal(raw, catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	sort.Slice(catalog.Chapters, func(i, j int) bool {
		return catalog.Chapters[i].ID < catalog.Chapters[j].ID
	})
	return catalog, nil
}

func (catalog *Catalog) validate() error {
	if len(catalog.Chapters) == 0 {
		return errors.New("catalog has no chapters")
	}
	seen := make(map[int]struct{}, len(catalog.Chapters))
	for _, chapter := range catalog.Chapters {
		if chapter.ID <= 0 {
			return fmt.Errorf("chapter %q has invalid id %d", chapter.Title, chapter.ID)
		}
		if _, duplicate := seen[chapter.ID]; duplicate {
			return fmt.Errorf("duplicate chapter id %d", chapter.ID)
		}
		seen[chapter.ID] = struct{}{}
	}
	for id := 1; id <= len(catalog.Chapters); id++ {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("chapter ids must be contiguous, missing %d", id)
		}
	}
	return nil
}

func (catalog *Catalog) TotalChapters() int {
	return len(catalog.Chapters)
}

func (catalog *Catalog) Chapter(id int) (Chapter, bool) {
	if id < 1 || id > len(catalog.Chapters) {
		return Chapter{}, false
	}
	return catalog.Chapters[id-1], true
}
