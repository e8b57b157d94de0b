package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Plugin holds the watcher rules. JSON keys match the Beholder.json files
// written by earlier releases so existing files load unchanged.
//
// A *Plugin handed out by a Holder is shared; treat it as read-only.
type Plugin struct {
	NotifyToOnlineAdmin bool     `json:"NotifyToOnlineAdmin"`
	NotifyToConsoleLogs bool     `json:"NotifyToConsoleLogs"`
	NotifyAllPlayer     bool     `json:"NotifyAllPlayer"`
	SaveToLogFile       bool     `json:"SaveToLogFile"`
	StackCheckThreshold int      `json:"StackCheckThreshold"`
	ListAdminGroupName  []string `json:"ListAdminGroupName"`
	ExcludedItemId      []int    `json:"ExcludedItemId"`

	excluded map[int]struct{}
	admins   map[string]struct{}
}

// DefaultPlugin returns the rules used for a fresh install and whenever the
// rules file cannot be read.
func DefaultPlugin() *Plugin {
	p := &Plugin{
		NotifyToOnlineAdmin: true,
		NotifyToConsoleLogs: true,
		NotifyAllPlayer:     false,
		SaveToLogFile:       false,
		StackCheckThreshold: 999,
		ListAdminGroupName:  []string{"admin", "newadmin", "trustedadmin", "superadmin", "owner"},
		ExcludedItemId:      []int{},
	}
	p.index()
	return p
}

func (p *Plugin) index() {
	if p.ListAdminGroupName == nil {
		p.ListAdminGroupName = []string{}
	}
	if p.ExcludedItemId == nil {
		p.ExcludedItemId = []int{}
	}
	p.excluded = make(map[int]struct{}, len(p.ExcludedItemId))
	for _, id := range p.ExcludedItemId {
		p.excluded[id] = struct{}{}
	}
	p.admins = make(map[string]struct{}, len(p.ListAdminGroupName))
	for _, g := range p.ListAdminGroupName {
		p.admins[strings.ToLower(g)] = struct{}{}
	}
}

// IsExcluded reports whether itemType never triggers a detection.
func (p *Plugin) IsExcluded(itemType int) bool {
	_, ok := p.excluded[itemType]
	return ok
}

// IsAdminGroup reports whether group is one of the admin groups, ignoring case.
func (p *Plugin) IsAdminGroup(group string) bool {
	_, ok := p.admins[strings.ToLower(group)]
	return ok
}

// GlobalBroadcast reports whether admin, console and all-player
// notifications are all on, in which case a single server-wide broadcast
// replaces the three separate sends.
func (p *Plugin) GlobalBroadcast() bool {
	return p.NotifyToOnlineAdmin && p.NotifyToConsoleLogs && p.NotifyAllPlayer
}

// LoadPlugin reads and validates the rules file at path. Fields absent from
// the file keep their default values.
func LoadPlugin(path string) (*Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePlugin(data)
}

// ParsePlugin validates data against the rules schema and decodes it.
func ParsePlugin(data []byte) (*Plugin, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := pluginSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating rules: %w", err)
	}

	p := DefaultPlugin()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	p.index()
	return p, nil
}

// EnsurePlugin writes the default rules to path unless a file is already
// there. It reports whether a file was created.
func EnsurePlugin(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := WritePlugin(path, DefaultPlugin()); err != nil {
		return false, err
	}
	return true, nil
}

// WritePlugin writes p to path using an atomic temp-file-then-rename so a
// concurrent reload never sees a half-written file.
func WritePlugin(path string, p *Plugin) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".beholder-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming rules file: %w", err)
	}
	committed = true
	return nil
}

var pluginSchema = jsonschema.MustCompileString("beholder.schema.json", `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "NotifyToOnlineAdmin": {"type": "boolean"},
    "NotifyToConsoleLogs": {"type": "boolean"},
    "NotifyAllPlayer": {"type": "boolean"},
    "SaveToLogFile": {"type": "boolean"},
    "StackCheckThreshold": {"type": "integer", "minimum": 0},
    "ListAdminGroupName": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    },
    "ExcludedItemId": {
      "type": ["array", "null"],
      "items": {"type": "integer"}
    }
  }
}`)
