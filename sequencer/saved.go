package sequencer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const saveStamp = "2006-01-02_15-04-05"

// SaveInfo represents a saved playlist file (for listing)
type SaveInfo struct {
	Filename  string
	Name      string // parsed from filename (empty if unnamed)
	Timestamp time.Time
}

// SavedPlaylist is the on-disk form of a playlist
type SavedPlaylist struct {
	Name  string    `json:"name,omitempty"`
	Saved time.Time `json:"saved"`
	Files []string  `json:"files"`
}

// PlaylistsDir returns the saved playlists directory path
func PlaylistsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "professore", "playlists"), nil
}

// ListSaves returns timestamped saves in dir, newest first
func ListSaves(dir string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SaveInfo{}, nil
		}
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		// 2024-01-15_14-30-00.json or 2024-01-15_14-30-00_name.json
		baseName := strings.TrimSuffix(name, ".json")
		if len(baseName) < len(saveStamp) {
			continue
		}
		ts, err := time.ParseInLocation(saveStamp, baseName[:len(saveStamp)], time.Local)
		if err != nil {
			continue
		}

		saveName := ""
		if len(baseName) > len(saveStamp)+1 && baseName[len(saveStamp)] == '_' {
			saveName = baseName[len(saveStamp)+1:]
		}

		saves = append(saves, SaveInfo{
			Filename:  name,
			Name:      saveName,
			Timestamp: ts,
		})
	}

	sort.Slice(saves, func(i, j int) bool {
		return saves[i].Timestamp.After(saves[j].Timestamp)
	})
	return saves, nil
}

// SavePlaylist writes files, made absolute, to a new timestamped save in
// dir and returns its path.
func SavePlaylist(dir, name string, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("save playlist: nothing queued")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	abs := make([]string, len(files))
	for i, f := range files {
		a, err := filepath.Abs(f)
		if err != nil {
			return "", err
		}
		abs[i] = a
	}

	now := time.Now()
	data, err := json.MarshalIndent(SavedPlaylist{Name: name, Saved: now, Files: abs}, "", "  ")
	if err != nil {
		return "", err
	}

	filename := now.Format(saveStamp)
	if name != "" {
		filename += "_" + sanitizeFilename(name)
	}
	path := filepath.Join(dir, filename+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// LoadPlaylist reads a save. Relative entries resolve against the save's
// directory.
func LoadPlaylist(path string) (*SavedPlaylist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pl SavedPlaylist
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", path, err)
	}
	for i, f := range pl.Files {
		if !filepath.IsAbs(f) {
			pl.Files[i] = filepath.Join(filepath.Dir(path), f)
		}
	}
	return &pl, nil
}

// LoadLatest reads the newest save in dir
func LoadLatest(dir string) (*SavedPlaylist, error) {
	saves, err := ListSaves(dir)
	if err != nil {
		return nil, err
	}
	if len(saves) == 0 {
		return nil, fmt.Errorf("no saved playlists in %s", dir)
	}
	return LoadPlaylist(filepath.Join(dir, saves[0].Filename))
}

// EnqueueSaved queues every file of a saved playlist. Files that fail to
// load are skipped and reported together.
func (p *Player) EnqueueSaved(pl *SavedPlaylist) error {
	var failed []string
	for _, f := range pl.Files {
		if err := p.Enqueue(f); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(f), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("playlist %q: %s", pl.Name, strings.Join(failed, "; "))
	}
	return nil
}

// sanitizeFilename replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	return strings.NewReplacer(
		" ", "-", "/", "-", "\\", "-", ":", "-",
		"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
	).Replace(name)
}
