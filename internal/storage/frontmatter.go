// ABOUTME: Frontmatter parsing and atomic file writes for narrative files.
// ABOUTME: Frontmatter is a YAML block fenced by "---" lines at the top of a file.
package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---"

// parseFrontmatter splits content into its YAML frontmatter and body. It
// returns an empty frontmatter and the whole content when there is no fence.
func parseFrontmatter(content string) (string, string) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, frontmatterFence+"\n") {
		return "", content
	}
	rest := content[len(frontmatterFence)+1:]
	if strings.HasPrefix(rest, frontmatterFence+"\n") || rest == frontmatterFence {
		return "", strings.TrimPrefix(strings.TrimPrefix(rest, frontmatterFence), "\n")
	}
	end := strings.Index(rest, "\n"+frontmatterFence)
	if end < 0 {
		return "", content
	}
	fm := rest[:end]
	body := rest[end+len(frontmatterFence)+1:]
	body = strings.TrimPrefix(body, "\n")
	return fm, body
}

// renderFrontmatter serialises fm as YAML and prepends it to body.
func renderFrontmatter(fm any, body string) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	return frontmatterFence + "\n" + buf.String() + frontmatterFence + "\n" + body, nil
}

// atomicWrite writes data to a temp file in the target directory and renames
// it into place, creating parent directories as needed.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
