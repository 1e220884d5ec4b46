package metadata

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// SearchMode says how videos were scraped: from a list of profiles or from
// keyword searches. Each mode has its own video and profile stores.
type SearchMode string

const (
	SearchProfile SearchMode = "profile"
	SearchKeyword SearchMode = "keyword"
)

// ParseSearchMode validates a mode name.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(s) {
	case SearchProfile, SearchKeyword:
		return SearchMode(s), nil
	}
	return "", eris.Errorf("metadata: unknown search mode %q (want profile or keyword)", s)
}

// Files names the CSV stores of a project.
type Files struct {
	ProfileSearchVideos   string
	KeywordSearchVideos   string
	ProfileSearchProfiles string
	KeywordSearchProfiles string
}

// Paths resolves store locations for one project.
type Paths struct {
	DataDir   string
	ConfigDir string
	Project   string
	Files     Files
}

// ProjectDir is the directory holding every store of the project.
func (p Paths) ProjectDir() string {
	return filepath.Join(p.DataDir, p.Project)
}

// InProject reports whether path lies inside ProjectDir. Relative paths
// are resolved against the working directory.
func (p Paths) InProject(path string) bool {
	dir, err := filepath.Abs(p.ProjectDir())
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Videos returns the video store for mode.
func (p Paths) Videos(mode SearchMode) string {
	if mode == SearchProfile {
		return filepath.Join(p.ProjectDir(), p.Files.ProfileSearchVideos)
	}
	return filepath.Join(p.ProjectDir(), p.Files.KeywordSearchVideos)
}

// Profiles returns the profile store for mode.
func (p Paths) Profiles(mode SearchMode) string {
	if mode == SearchProfile {
		return filepath.Join(p.ProjectDir(), p.Files.ProfileSearchProfiles)
	}
	return filepath.Join(p.ProjectDir(), p.Files.KeywordSearchProfiles)
}

// BatchDir holds batch task and result files.
func (p Paths) BatchDir() string {
	return filepath.Join(p.ProjectDir(), "batch-files")
}

// DownloadsDir holds downloaded videos and optimized audio.
func (p Paths) DownloadsDir() string {
	return filepath.Join(p.ProjectDir(), "video-downloads")
}

// ProfileList is the text file of tracked handles, one per line.
func (p Paths) ProfileList() string {
	return filepath.Join(p.ConfigDir, p.Project+"_profiles.txt")
}

// SearchTerms is the text file of keyword search terms, one per line.
func (p Paths) SearchTerms() string {
	return filepath.Join(p.ConfigDir, p.Project+"_search_terms.txt")
}

// ConfigFile resolves a file name relative to the config directory.
func (p Paths) ConfigFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.ConfigDir, name)
}
