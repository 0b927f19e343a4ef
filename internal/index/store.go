package index

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"spacebio-rag/internal/model"
	"spacebio-rag/internal/platform/logger"
)

const (
	currentFile  = "CURRENT"
	buildsDir    = "builds"
	IndexFile    = "index.bin"
	MetadataFile = "meta.jsonl"
)

// ErrPartialBuild marks a build directory whose index and metadata disagree
// or are incomplete.
var ErrPartialBuild = errors.New("partial build artifact")

// Store lays builds out as <dir>/builds/<id>/{index.bin,meta.jsonl} and names
// the active one in <dir>/CURRENT.
type Store struct {
	dir string
	log *logger.Logger
}

func NewStore(dir string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{dir: dir, log: log}
}

func (s *Store) Dir() string { return s.dir }

// Publish writes a complete build to a temporary directory, renames it into
// place and then repoints CURRENT. Readers never observe a half-written build.
func (s *Store) Publish(buildID string, idx *FlatIndex, records []model.ChunkRecord) error {
	if buildID == "" || strings.ContainsAny(buildID, `/\`) || strings.HasPrefix(buildID, ".") {
		return fmt.Errorf("invalid build id %q", buildID)
	}
	if idx == nil || idx.Len() != len(records) {
		return fmt.Errorf("%w: index and metadata counts differ", ErrPartialBuild)
	}

	root := filepath.Join(s.dir, buildsDir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create builds dir failed: %w", err)
	}
	final := filepath.Join(root, buildID)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("build %s already exists", buildID)
	}

	tmp, err := os.MkdirTemp(root, ".tmp-"+buildID+"-")
	if err != nil {
		return fmt.Errorf("create temp build dir failed: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := writeFileSync(filepath.Join(tmp, IndexFile), func(w io.Writer) error {
		_, err := idx.WriteTo(w)
		return err
	}); err != nil {
		return err
	}
	if err := writeFileSync(filepath.Join(tmp, MetadataFile), func(w io.Writer) error {
		return WriteMetadata(w, records)
	}); err != nil {
		return err
	}
	if err := syncDir(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename build dir failed: %w", err)
	}
	committed = true
	if err := syncDir(root); err != nil {
		return err
	}

	if err := s.setCurrent(buildID); err != nil {
		return err
	}
	s.log.Info("index build published", "build_id", buildID, "vectors", idx.Len(), "dir", final)
	return nil
}

func (s *Store) setCurrent(buildID string) error {
	tmp, err := os.CreateTemp(s.dir, currentFile+".tmp-")
	if err != nil {
		return fmt.Errorf("create current pointer failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(buildID + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write current pointer failed: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync current pointer failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close current pointer failed: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, currentFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace current pointer failed: %w", err)
	}
	return syncDir(s.dir)
}

// Current returns the active build id, or "" when nothing was published.
func (s *Store) Current() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read current pointer failed: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// buildDir resolves the directory holding the active artifacts. A directory
// with meta.jsonl at its root and no CURRENT pointer is read in place.
func (s *Store) buildDir() (string, string, error) {
	id, err := s.Current()
	if err != nil {
		return "", "", err
	}
	if id != "" {
		return filepath.Join(s.dir, buildsDir, id), id, nil
	}
	if _, err := os.Stat(filepath.Join(s.dir, MetadataFile)); err == nil {
		return s.dir, "", nil
	}
	return "", "", nil
}

// Load reads the active build. Without any build it returns an empty
// snapshot. withIndex=false skips the vectors, leaving only metadata.
func (s *Store) Load(withIndex bool) (*Snapshot, error) {
	dir, buildID, err := s.buildDir()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		s.log.Warn("no index build found", "dir", s.dir)
		return Empty(), nil
	}

	skipped := 0
	records, err := LoadMetadata(filepath.Join(dir, MetadataFile), func(line int, err error) {
		skipped++
		s.log.Warn("skipping metadata line", "line", line, "error", err)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrPartialBuild, err)
		}
		return nil, err
	}

	var idx *FlatIndex
	if withIndex {
		idx, err = LoadFlatIndex(filepath.Join(dir, IndexFile))
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.log.Warn("index file missing, serving metadata only", "dir", dir)
			idx = nil
		case err != nil:
			return nil, err
		}
	}

	snap, err := newSnapshot(buildID, idx, records, skipped, func(id int, err error) {
		s.log.Warn("dropping metadata record", "id", id, "error", err)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("index snapshot loaded",
		"build_id", buildID,
		"records", snap.Len(),
		"skipped", snap.Skipped,
		"vectors", snap.Vectors(),
	)
	return snap, nil
}

func writeFileSync(path string, write func(io.Writer) error) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s failed: %w", filepath.Base(path), err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync %s failed: %w", filepath.Base(path), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s failed: %w", filepath.Base(path), err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir for sync failed: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync dir failed: %w", err)
	}
	return nil
}
