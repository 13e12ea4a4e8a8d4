// ABOUTME: Directory-backed narrative storage with markdown and structured formats.
// ABOUTME: Markdown files carry YAML frontmatter and one "## <beat id>" section per beat.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/beatalign/internal/models"
)

// narrativeExtensions lists the file extensions a narrative may use.
var narrativeExtensions = []string{"md", "yaml", "yml", "toml", "json"}

// DirNarrativeStore reads narratives from a directory tree.
type DirNarrativeStore struct {
	root string
}

// narrativeFrontmatter is the YAML frontmatter of a markdown narrative.
type narrativeFrontmatter struct {
	ID    string `yaml:"id,omitempty"`
	Title string `yaml:"title,omitempty"`
}

// NewDirNarrativeStore creates a store rooted at root. The directory need not exist yet.
func NewDirNarrativeStore(root string) (*DirNarrativeStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("narratives directory is required")
	}
	return &DirNarrativeStore{root: root}, nil
}

// Root returns the directory the store reads from.
func (s *DirNarrativeStore) Root() string {
	return s.root
}

// Resolve loads a narrative by file path or id. Ids are matched against file
// names first, then against the id declared inside each file.
func (s *DirNarrativeStore) Resolve(ref string) (*models.Narrative, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("narrative reference is required")
	}
	if looksLikePath(ref) {
		if info, err := os.Stat(ref); err == nil && !info.IsDir() {
			return LoadNarrativeFile(ref)
		}
	}
	if strings.ContainsAny(ref, `*?[]{}\`) {
		return nil, fmt.Errorf("invalid narrative id %q", ref)
	}

	pattern := "**/" + ref + ".{" + strings.Join(narrativeExtensions, ",") + "}"
	matches, err := s.glob(pattern)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
	case 1:
		return LoadNarrativeFile(matches[0])
	default:
		return nil, fmt.Errorf("narrative %q is ambiguous: %s", ref, strings.Join(matches, ", "))
	}

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, n := range all {
		if n.ID == ref {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrNarrativeNotFound, ref, s.root)
}

// List returns every narrative that parses, sorted by id. Unreadable files
// are skipped.
func (s *DirNarrativeStore) List() ([]models.NarrativeInfo, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]models.NarrativeInfo, 0, len(all))
	for _, n := range all {
		out = append(out, n.Info())
	}
	return out, nil
}

// Save writes n as <root>/<id>.md, replacing any existing file atomically.
func (s *DirNarrativeStore) Save(n *models.Narrative) (string, error) {
	if strings.TrimSpace(n.ID) == "" {
		return "", fmt.Errorf("narrative id is required")
	}
	if strings.ContainsAny(n.ID, `/\`) {
		return "", fmt.Errorf("narrative id %q must not contain path separators", n.ID)
	}
	if err := checkBeats(n.Beats); err != nil {
		return "", err
	}
	content, err := RenderMarkdown(n)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, n.ID+".md")
	if err := atomicWrite(path, []byte(content)); err != nil {
		return "", fmt.Errorf("failed to write narrative: %w", err)
	}
	n.Path = path
	n.Format = "md"
	return path, nil
}

// Close releases any resources held by the store.
func (s *DirNarrativeStore) Close() error {
	return nil
}

// load parses every narrative file under the root, sorted by id.
func (s *DirNarrativeStore) load() ([]*models.Narrative, error) {
	matches, err := s.glob("**/*.{" + strings.Join(narrativeExtensions, ",") + "}")
	if err != nil {
		return nil, err
	}
	var out []*models.Narrative
	for _, path := range matches {
		n, err := LoadNarrativeFile(path)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *models.Narrative) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// glob matches pattern under the root, skipping hidden files, and returns
// sorted paths joined with the root.
func (s *DirNarrativeStore) glob(pattern string) ([]string, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, nil
	}
	rel, err := doublestar.Glob(os.DirFS(s.root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		if isHidden(r) {
			continue
		}
		out = append(out, filepath.Join(s.root, filepath.FromSlash(r)))
	}
	slices.Sort(out)
	return out, nil
}

// LoadNarrativeFile parses a narrative file of any supported format.
func LoadNarrativeFile(path string) (*models.Narrative, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read narrative: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read narrative: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	var n *models.Narrative
	switch format {
	case "md":
		n, err = parseMarkdownNarrative(string(data))
	case "yaml", "yml", "toml", "json":
		n, err = parseStructuredNarrative(format, data)
	default:
		return nil, fmt.Errorf("unsupported narrative format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if n.ID == "" {
		n.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	n.Path = path
	n.Format = format
	n.ModifiedAt = info.ModTime()
	if err := checkBeats(n.Beats); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// parseMarkdownNarrative reads frontmatter and "## " sections. A body with no
// headings is split into paragraphs with positional ids.
func parseMarkdownNarrative(content string) (*models.Narrative, error) {
	yamlStr, body := parseFrontmatter(content)
	var fm narrativeFrontmatter
	if yamlStr != "" {
		if err := yaml.Unmarshal([]byte(yamlStr), &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	beats := parseSections(body)
	if beats == nil {
		beats = parseParagraphs(body)
	}
	return &models.Narrative{ID: strings.TrimSpace(fm.ID), Title: strings.TrimSpace(fm.Title), Beats: beats}, nil
}

// parseSections extracts one beat per "## " heading, in file order. It returns
// nil when the body has no headings.
func parseSections(body string) []models.Beat {
	var beats []models.Beat
	var current *models.Beat
	var content strings.Builder

	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(content.String())
			beats = append(beats, *current)
		}
	}

	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = &models.Beat{ID: models.BeatKey(strings.TrimPrefix(line, "## "))}
			content.Reset()
			continue
		}
		if current != nil {
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	flush()

	for i := range beats {
		if beats[i].ID == "" {
			beats[i].ID = models.PositionalID(i)
		}
	}
	return beats
}

// parseParagraphs splits a heading-free body on blank lines.
func parseParagraphs(body string) []models.Beat {
	beats := []models.Beat{}
	for _, para := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		text := strings.TrimSpace(para)
		if text == "" || strings.HasPrefix(text, "# ") {
			continue
		}
		beats = append(beats, models.Beat{ID: models.PositionalID(len(beats)), Text: text})
	}
	return beats
}

// RenderMarkdown converts a narrative to the markdown file format.
func RenderMarkdown(n *models.Narrative) (string, error) {
	var sb strings.Builder
	for _, b := range n.Beats {
		fmt.Fprintf(&sb, "\n## %s\n%s\n", b.ID, strings.TrimSpace(b.Text))
	}
	content, err := renderFrontmatter(narrativeFrontmatter{ID: n.ID, Title: n.Title}, sb.String())
	if err != nil {
		return "", fmt.Errorf("failed to render frontmatter: %w", err)
	}
	return content, nil
}

// checkBeats rejects duplicate beat ids.
func checkBeats(beats []models.Beat) error {
	seen := make(map[string]int, len(beats))
	for i, b := range beats {
		if prev, ok := seen[b.ID]; ok {
			return fmt.Errorf("duplicate beat id %q at positions %d and %d", b.ID, prev+1, i+1)
		}
		seen[b.ID] = i
	}
	return nil
}

func looksLikePath(ref string) bool {
	if strings.ContainsRune(ref, filepath.Separator) || strings.ContainsRune(ref, '/') {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(ref), ".")
	return slices.Contains(narrativeExtensions, strings.ToLower(ext))
}

func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
