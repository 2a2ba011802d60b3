package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/navbytes/requestkit/pkg/profile"
	"github.com/navbytes/requestkit/pkg/validation"
)

// FilesystemProfileRepository stores profiles as YAML files, one per
// profile, named after the profile. Default location: ~/.requestkit/profiles/
type FilesystemProfileRepository struct {
	baseDir string
}

// NewFilesystemProfileRepository creates a repository under the default
// config directory, creating it if needed.
func NewFilesystemProfileRepository() (*FilesystemProfileRepository, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewFilesystemProfileRepositoryWithPath(filepath.Join(homeDir, ".requestkit"))
}

// NewFilesystemProfileRepositoryWithPath creates a repository under a custom
// base directory. Useful for testing.
func NewFilesystemProfileRepositoryWithPath(baseDir string) (*FilesystemProfileRepository, error) {
	profilesDir := filepath.Join(baseDir, "profiles")
	if err := os.MkdirAll(profilesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}
	return &FilesystemProfileRepository{baseDir: profilesDir}, nil
}

// Save persists a profile as <name>.yaml. The profile name doubles as the
// filename, so it must be a plain file name without separators.
func (r *FilesystemProfileRepository) Save(p *profile.Profile) error {
	if p == nil {
		return errors.New("cannot save nil profile")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if !validation.IsValidFileName(p.Name) {
		return fmt.Errorf("profile name %q is not usable as a file name", p.Name)
	}

	data, err := profile.Export(p)
	if err != nil {
		return fmt.Errorf("failed to serialize profile %q: %w", p.Name, err)
	}

	path := r.pathFor(p.Name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	return nil
}

// Load reads a profile by name.
func (r *FilesystemProfileRepository) Load(name string) (*profile.Profile, error) {
	if !validation.IsValidFileName(name) {
		return nil, fmt.Errorf("invalid profile name %q", name)
	}
	return profile.LoadFromFile(r.pathFor(name))
}

// Delete removes a profile file by name.
func (r *FilesystemProfileRepository) Delete(name string) error {
	if !validation.IsValidFileName(name) {
		return fmt.Errorf("invalid profile name %q", name)
	}
	if err := os.Remove(r.pathFor(name)); err != nil {
		return fmt.Errorf("failed to delete profile %q: %w", name, err)
	}
	return nil
}

// List returns the names of all stored profiles.
func (r *FilesystemProfileRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *FilesystemProfileRepository) pathFor(name string) string {
	return filepath.Join(r.baseDir, name+".yaml")
}
