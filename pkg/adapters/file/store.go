package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/railyard/pkg/domain"
)

// Store implements ports.LayoutStore using the local filesystem.
// It stores layouts as JSON files in a configured directory.
type Store struct {
	BasePath string
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".railyard/layouts".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".railyard", "layouts")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(layoutID string) (string, error) {
	if layoutID == "" {
		return "", errors.New("layoutID cannot be empty")
	}
	if strings.ContainsAny(layoutID, `/\`) || layoutID == "." || layoutID == ".." {
		return "", fmt.Errorf("invalid layoutID %q", layoutID)
	}
	return filepath.Join(s.BasePath, layoutID+".json"), nil
}

// Save writes the layout to a temporary file, syncs it and renames it over
// the destination, so readers never observe a partial file.
func (s *Store) Save(ctx context.Context, layoutID string, layout *domain.Layout) error {
	destPath, err := s.path(layoutID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure layout directory: %w", err)
	}

	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	// Same directory as the destination: rename is only atomic within one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+layoutID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		// Windows refuses to rename over an existing file.
		if _, statErr := os.Stat(destPath); statErr == nil {
			if err := os.Remove(destPath); err != nil {
				return fmt.Errorf("failed to remove existing layout file for overwrite: %w", err)
			}
			if err := os.Rename(tmpPath, destPath); err != nil {
				return fmt.Errorf("failed to rename temp file to layout: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to rename temp file to layout: %w", err)
	}
	return nil
}

// Load reads a layout file.
func (s *Store) Load(ctx context.Context, layoutID string) (*domain.Layout, error) {
	filePath, err := s.path(layoutID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, layoutID)
		}
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var layout domain.Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout: %w", err)
	}
	return &layout, nil
}

// Delete removes the layout file.
func (s *Store) Delete(ctx context.Context, layoutID string) error {
	filePath, err := s.path(layoutID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete layout file: %w", err)
	}
	return nil
}

// List returns the stored layout IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list layouts: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
