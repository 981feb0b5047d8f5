package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"diaryassistant/internal/fileutil"
)

// EmptyText is rendered in place of the fact list when nothing is known yet.
const EmptyText = "暂无个人信息记录。"

// Profile is the fact list stored at one path.
type Profile struct {
	path  string
	facts []string
}

// Load reads the profile at path. A missing file yields an empty profile.
func Load(path string) (*Profile, error) {
	p := &Profile{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse profile %s: expected a JSON array of facts: %w", path, err)
	}
	for _, item := range items {
		var fact string
		if s, ok := item.(string); ok {
			fact = s
		} else {
			fact = fmt.Sprint(item)
		}
		if fact = strings.TrimSpace(fact); fact != "" {
			p.facts = append(p.facts, fact)
		}
	}
	return p, nil
}

// Path returns the file the profile is saved to.
func (p *Profile) Path() string {
	return p.path
}

// Facts returns a copy of the stored facts.
func (p *Profile) Facts() []string {
	return append([]string(nil), p.facts...)
}

// Text renders the facts as a markdown list for the system prompt.
func (p *Profile) Text() string {
	if len(p.facts) == 0 {
		return EmptyText
	}
	lines := make([]string, len(p.facts))
	for i, fact := range p.facts {
		lines[i] = "- " + fact
	}
	return strings.Join(lines, "\n")
}

// Length returns the total number of characters across all facts.
func (p *Profile) Length() int {
	total := 0
	for _, fact := range p.facts {
		total += utf8.RuneCountInString(fact)
	}
	return total
}

// Save writes the facts as an indented JSON array.
func (p *Profile) Save() error {
	if p.path == "" {
		return errors.New("save profile: no path configured")
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	facts := p.facts
	if facts == nil {
		facts = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(facts); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := fileutil.WriteFileAtomic(p.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// Changes counts what Apply did. Unmatched holds remove and update targets
// that matched no fact, or more than one.
type Changes struct {
	Added     int
	Removed   int
	Updated   int
	Unmatched []string
}

// Any reports whether the fact list changed.
func (c Changes) Any() bool {
	return c.Added+c.Removed+c.Updated > 0
}

// Apply runs additions, then removals, then replacements. Removal and
// replacement targets match a whole fact first and otherwise a fragment
// contained in exactly one fact.
func (p *Profile) Apply(u Updates) Changes {
	var c Changes
	for _, fact := range u.Add {
		fact = strings.TrimSpace(fact)
		if fact == "" || p.index(fact) >= 0 {
			continue
		}
		p.facts = append(p.facts, fact)
		c.Added++
	}
	for _, target := range u.Remove {
		if strings.TrimSpace(target) == "" {
			continue
		}
		i, _ := p.match(target)
		if i < 0 {
			c.Unmatched = append(c.Unmatched, target)
			continue
		}
		p.facts = append(p.facts[:i], p.facts[i+1:]...)
		c.Removed++
	}
	for _, r := range u.Update {
		if strings.TrimSpace(r.Old) == "" || strings.TrimSpace(r.New) == "" {
			continue
		}
		i, exact := p.match(r.Old)
		if i < 0 {
			c.Unmatched = append(c.Unmatched, r.Old)
			continue
		}
		if exact {
			p.facts[i] = strings.TrimSpace(r.New)
		} else {
			p.facts[i] = strings.ReplaceAll(p.facts[i], r.Old, r.New)
		}
		c.Updated++
	}
	return c
}

func (p *Profile) index(fact string) int {
	for i, f := range p.facts {
		if f == fact {
			return i
		}
	}
	return -1
}

// match returns the index of the fact equal to target, or of the single fact
// containing it. -1 means no match or an ambiguous fragment.
func (p *Profile) match(target string) (int, bool) {
	if i := p.index(target); i >= 0 {
		return i, true
	}
	found := -1
	for i, f := range p.facts {
		if !strings.Contains(f, target) {
			continue
		}
		if found >= 0 {
			return -1, false
		}
		found = i
	}
	return found, false
}
