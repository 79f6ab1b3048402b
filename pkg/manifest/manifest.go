// Package manifest reads and appends to archives.json, the ordered list of
// previous versions consumed by the live site's previous-versions page.
//
// The file is read fully, appended to in memory and rewritten fully. There is
// no locking: two concurrent appends can lose one of the updates.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/sitearchive/pkg/safeio"
)

// ErrMalformed is returned when the manifest is not a JSON array.
var ErrMalformed = errors.New("malformed manifest")

// Indent matches the existing archives.json layout.
const Indent = "    "

// Version describes one archived previous version.
type Version struct {
	Path      string `json:"path" yaml:"path"`
	DateStart string `json:"date_start" yaml:"date_start"`
	DateEnd   string `json:"date_end" yaml:"date_end"`
	Changelog string `json:"changelog" yaml:"changelog"`
}

// Manifest is the ordered collection of archived versions. Entries that were
// loaded from disk are kept byte for byte (modulo whitespace) so fields this
// tool does not know about survive a rewrite.
type Manifest struct {
	entries []json.RawMessage
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if entries == nil {
		// a literal null is not an array
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformed)
	}
	return &Manifest{entries: entries}, nil
}

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Append adds v to the end of the manifest. Duplicate paths are allowed.
func (m *Manifest) Append(v Version) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	m.entries = append(m.entries, bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}

// Versions decodes every entry.
func (m *Manifest) Versions() ([]Version, error) {
	versions := make([]Version, 0, len(m.entries))
	for i, raw := range m.entries {
		var v Version
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformed, i, err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// Last returns the most recently appended entry.
func (m *Manifest) Last() (Version, bool) {
	if len(m.entries) == 0 {
		return Version{}, false
	}
	var v Version
	if err := json.Unmarshal(m.entries[len(m.entries)-1], &v); err != nil {
		return Version{}, false
	}
	return v, true
}

// Marshal renders the manifest with four-space indentation and no trailing
// newline. HTML-sensitive characters are written as-is.
func (m *Manifest) Marshal() ([]byte, error) {
	entries := m.entries
	if entries == nil {
		entries = []json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied manifest path
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Save rewrites the whole manifest at path, keeping the file's mode.
func Save(path string, m *Manifest) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := safeio.WriteFilePreservePerms(path, data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// AppendVersion loads the manifest at path, appends v and writes it back.
// Nothing is written when the existing file cannot be parsed.
func AppendVersion(path string, v Version) (*Manifest, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := m.Append(v); err != nil {
		return nil, err
	}
	if err := Save(path, m); err != nil {
		return nil, err
	}
	return m, nil
}
