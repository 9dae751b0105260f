package staging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrUnsupportedType indicates the filename extension or declared
	// content type is not allowed for the category.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge indicates the payload exceeds the category size cap.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnknownCategory indicates an unconfigured upload category.
	ErrUnknownCategory = errors.New("unknown upload category")
)

// StagedFile describes a validated upload sitting on local disk, waiting to
// be pushed to the remote store.
type StagedFile struct {
	Category     Category
	Path         string
	OriginalName string
	StoredName   string
	Size         int64
	MIME         string
}

// Store writes validated uploads into category subdirectories under a single
// staging root.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a staging store rooted at root and ensures the category
// subdirectory tree exists.
func NewStore(log *slog.Logger, root string) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve staging root: %w", err)
	}
	s := &Store{
		root:   abs,
		logger: log.With(slog.String("service", "staging")),
	}
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the absolute staging root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the staging directory for a category.
func (s *Store) Dir(category Category) string {
	p, ok := PolicyFor(category)
	if !ok {
		return s.root
	}
	return filepath.Join(s.root, p.Subdir)
}

// Stage validates the upload against the category policy and streams it to
// local disk. The size cap is enforced while copying, never by buffering the
// whole payload first. On any error after the file is created, the partial
// file is removed so the staging area holds no truncated uploads.
func (s *Store) Stage(category Category, originalName, mime string, r io.Reader) (StagedFile, error) {
	policy, ok := PolicyFor(category)
	if !ok {
		return StagedFile{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if !policy.Allows(originalName, mime) {
		return StagedFile{}, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Base(originalName))
	}
	if r == nil {
		return StagedFile{}, fmt.Errorf("reader is required")
	}

	storedName := storedName(policy, originalName)
	dest := filepath.Join(s.root, policy.Subdir, storedName)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return StagedFile{}, fmt.Errorf("create staging dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}

	limited := &io.LimitedReader{R: r, N: policy.MaxBytes + 1}
	written, err := io.Copy(f, limited)
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(dest)
		return StagedFile{}, fmt.Errorf("write staged file: %w", err)
	case closeErr != nil:
		_ = os.Remove(dest)
		return StagedFile{}, fmt.Errorf("close staged file: %w", closeErr)
	case written > policy.MaxBytes:
		_ = os.Remove(dest)
		return StagedFile{}, fmt.Errorf("%w: max %d bytes", ErrFileTooLarge, policy.MaxBytes)
	case written == 0:
		_ = os.Remove(dest)
		return StagedFile{}, fmt.Errorf("empty payload")
	}

	s.logger.Debug("staged upload",
		slog.String("category", string(category)),
		slog.String("file", storedName),
		slog.Int64("bytes", written))

	return StagedFile{
		Category:     category,
		Path:         dest,
		OriginalName: filepath.Base(originalName),
		StoredName:   storedName,
		Size:         written,
		MIME:         mime,
	}, nil
}

// Discard removes a staged file. Missing files are not an error; the point
// is that the file is gone afterwards.
func (s *Store) Discard(sf StagedFile) error {
	if strings.TrimSpace(sf.Path) == "" {
		return nil
	}
	if err := os.Remove(sf.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard staged file: %w", err)
	}
	return nil
}

// RemoveLocal unlinks a previously staged file by stored name. Used for
// legacy locally-served vehicle images during vehicle deletion.
func (s *Store) RemoveLocal(category Category, storedName string) error {
	name := filepath.Base(storedName)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid stored name: %q", storedName)
	}
	path := filepath.Join(s.Dir(category), name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove local file: %w", err)
	}
	return nil
}

func (s *Store) ensureDirs() error {
	dirs := []string{s.root}
	for _, c := range Categories() {
		p, _ := PolicyFor(c)
		dirs = append(dirs, filepath.Join(s.root, p.Subdir))
	}
	dirs = append(dirs, filepath.Join(s.root, "temp"))
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return nil
}

// storedName picks the on-disk filename: a fixed stem for singleton
// categories, otherwise "<unixMillis>-<random>.<ext>" which is unique per
// call without any coordination.
func storedName(policy Policy, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if policy.FixedStem != "" {
		return policy.FixedStem + ext
	}
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}
