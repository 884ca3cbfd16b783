// Package catalog loads the level-gated command catalog and answers which
// commands an access level unlocks.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/WauDev/telegram-bot-control-acces/internal/logging"
)

// commentSeparator splits a catalog entry into its command token and an
// optional human-readable comment.
const commentSeparator = " - "

// Entry is one catalog line: a bare command token or "<token> - <comment>".
type Entry string

// Token returns the command token of the entry, with any comment stripped.
func (e Entry) Token() string {
	text := strings.TrimSpace(string(e))
	if idx := strings.Index(text, commentSeparator); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}

	return text
}

// Catalog is a snapshot of the command catalog: access level to the declared
// command entries at that level.
type Catalog struct {
	levels map[int][]Entry
}

// NewCatalog builds a snapshot from a level→entries mapping. Used by tests
// and by Loader implementations.
func NewCatalog(levels map[int][]Entry) Catalog {
	if levels == nil {
		levels = map[int][]Entry{}
	}

	return Catalog{levels: levels}
}

// CommandsForLevel returns every entry gated at or below userLevel, walking
// levels in ascending numeric order and keeping each level's declared order.
// Duplicate tokens are not de-duplicated.
func (c Catalog) CommandsForLevel(userLevel int) []Entry {
	var entries []Entry
	for _, level := range c.sortedLevels() {
		if level > userLevel {
			break
		}
		entries = append(entries, c.levels[level]...)
	}

	return entries
}

// RequiredLevel returns the lowest level whose command list contains the given
// token. The second return is false when no level lists it.
func (c Catalog) RequiredLevel(command string) (int, bool) {
	for _, level := range c.sortedLevels() {
		for _, entry := range c.levels[level] {
			if entry.Token() == command {
				return level, true
			}
		}
	}

	return 0, false
}

func (c Catalog) sortedLevels() []int {
	levels := make([]int, 0, len(c.levels))
	for level := range c.levels {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	return levels
}

// Loader produces a fresh catalog snapshot per call.
type Loader interface {
	Load(ctx context.Context) (Catalog, error)
}

// catalogFile mirrors the commands.json wire layout.
type catalogFile struct {
	CommandsList struct {
		AccessControl map[string][]string `json:"access_control"`
	} `json:"commands_list"`
}

// FileCatalog reads the catalog from a JSON file on every Load, so edits take
// effect on the next message without a restart.
type FileCatalog struct {
	path   string
	logger *logrus.Entry
}

// NewFileCatalog constructs a FileCatalog for the given path.
func NewFileCatalog(path string, logger *logrus.Entry) (*FileCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &FileCatalog{
		path:   path,
		logger: logger,
	}, nil
}

// Load reads and parses the catalog file. A missing file is an empty catalog;
// malformed JSON or a non-numeric level key is an error.
func (f *FileCatalog) Load(ctx context.Context) (Catalog, error) {
	if f == nil || f.path == "" {
		return Catalog{}, errors.New("file catalog is not initialized")
	}
	if ctx == nil {
		return Catalog{}, errors.New("context is required")
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCatalog(nil), nil
		}
		return Catalog{}, fmt.Errorf("read command catalog: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse command catalog: %w", err)
	}

	levels := make(map[int][]Entry, len(file.CommandsList.AccessControl))
	for key, lines := range file.CommandsList.AccessControl {
		level, convErr := strconv.Atoi(strings.TrimSpace(key))
		if convErr != nil {
			return Catalog{}, fmt.Errorf("invalid catalog level key %q: %w", key, convErr)
		}
		if level < 0 {
			return Catalog{}, fmt.Errorf("invalid catalog level key %q: levels must be non-negative", key)
		}

		entries := make([]Entry, 0, len(lines))
		for _, line := range lines {
			entries = append(entries, Entry(line))
		}
		levels[level] = entries
	}

	return NewCatalog(levels), nil
}
