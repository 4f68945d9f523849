package taxonomy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nikishkaa/docx-bot/internal/model"
)

var (
	// ErrNotFound is returned when no file matches the requested name and scope.
	ErrNotFound = errors.New("file not found")
	// ErrUnknownCategory is returned when saving into a category outside the taxonomy.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidName is returned for file names that would escape their directory.
	ErrInvalidName = errors.New("invalid file name")
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store keeps uploaded files under root/<category>[/<subcategory>]/<name>.
// It holds no state besides the taxonomy; concurrent callers that check
// Exists before Save must serialize those two calls themselves.
type Store struct {
	root string
	tax  *Taxonomy
}

// NewStore creates a store rooted at root. Call Initialize before use.
func NewStore(root string, tax *Taxonomy) *Store {
	return &Store{root: root, tax: tax}
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// Taxonomy returns the taxonomy the store was created with.
func (s *Store) Taxonomy() *Taxonomy { return s.tax }

// Initialize creates the root and every category and subcategory directory.
// It is idempotent and never removes anything.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(s.root, dirPerm); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}
	for _, c := range s.tax.Categories {
		if err := os.MkdirAll(filepath.Join(s.root, c.Name), dirPerm); err != nil {
			return fmt.Errorf("create category %s: %w", c.Name, err)
		}
		for _, sub := range c.Subcategories {
			if err := os.MkdirAll(filepath.Join(s.root, c.Name, sub), dirPerm); err != nil {
				return fmt.Errorf("create subcategory %s/%s: %w", c.Name, sub, err)
			}
		}
	}
	return nil
}

// Save writes data as name into the category, or into the subcategory when
// it is declared for that category. An undeclared subcategory is ignored.
// Save overwrites an existing file; callers check Exists first.
func (s *Store) Save(name string, data []byte, category, subcategory string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if !s.tax.HasCategory(category) {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	dir := s.dir(category, subcategory)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Exists reports whether name is already stored in the scope Save would use.
func (s *Store) Exists(name, category, subcategory string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	if !s.tax.HasCategory(category) {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.dir(category, subcategory), name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
}

// Get returns the content of name. Scoping follows Locate.
func (s *Store) Get(name, category, subcategory string) ([]byte, error) {
	f, err := s.Locate(name, category, subcategory)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return data, nil
}

// Locate finds name and returns its record.
//
// With a category and a declared subcategory only that subcategory is
// searched. With a category alone only the category's own files are
// searched. With neither, each category is searched followed by its
// subcategories, in declared order, and the first match wins.
func (s *Store) Locate(name, category, subcategory string) (model.StoredFile, error) {
	if ValidateName(name) != nil {
		return model.StoredFile{}, ErrNotFound
	}
	for _, sc := range s.scopes(category, subcategory) {
		f, err := s.stat(name, sc.category, sc.subcategory)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return model.StoredFile{}, err
		}
	}
	return model.StoredFile{}, ErrNotFound
}

// List enumerates files in the scope selected by category and subcategory.
// Without a category the result spans every category and subcategory.
// Order within a directory is the order returned by the filesystem.
func (s *Store) List(category, subcategory string) ([]model.StoredFile, error) {
	var out []model.StoredFile
	for _, sc := range s.scopes(category, subcategory) {
		files, err := s.readDir(sc.category, sc.subcategory)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// Search matches query against every stored file name, case-insensitively.
// A name matches when it contains query; a query with glob metacharacters
// also matches names the pattern accepts. No match yields an empty slice.
func (s *Store) Search(query string) ([]model.StoredFile, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	all, err := s.List("", "")
	if err != nil {
		return nil, err
	}
	out := []model.StoredFile{}
	if q == "" {
		return out, nil
	}
	glob := strings.ContainsAny(q, "*?[{") && doublestar.ValidatePattern(q)
	for _, f := range all {
		name := strings.ToLower(f.Name)
		ok := strings.Contains(name, q)
		if !ok && glob {
			ok, _ = doublestar.Match(q, name)
		}
		if ok {
			out = append(out, f)
		}
	}
	return out, nil
}

type scope struct {
	category    string
	subcategory string
}

func (s *Store) scopes(category, subcategory string) []scope {
	if category != "" {
		if s.tax.ValidSubcategory(category, subcategory) {
			return []scope{{category, subcategory}}
		}
		if !s.tax.HasCategory(category) {
			return nil
		}
		return []scope{{category: category}}
	}
	var out []scope
	for _, c := range s.tax.Categories {
		out = append(out, scope{category: c.Name})
		for _, sub := range c.Subcategories {
			out = append(out, scope{c.Name, sub})
		}
	}
	return out
}

func (s *Store) dir(category, subcategory string) string {
	if s.tax.ValidSubcategory(category, subcategory) {
		return filepath.Join(s.root, category, subcategory)
	}
	return filepath.Join(s.root, category)
}

func (s *Store) stat(name, category, subcategory string) (model.StoredFile, error) {
	path := filepath.Join(s.dir(category, subcategory), name)
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.StoredFile{}, ErrNotFound
	}
	if err != nil {
		return model.StoredFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return model.StoredFile{}, ErrNotFound
	}
	return record(path, fi, category, subcategory), nil
}

func (s *Store) readDir(category, subcategory string) ([]model.StoredFile, error) {
	dir := s.dir(category, subcategory)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var out []model.StoredFile
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, record(filepath.Join(dir, e.Name()), fi, category, subcategory))
	}
	return out, nil
}

func record(path string, fi fs.FileInfo, category, subcategory string) model.StoredFile {
	return model.StoredFile{
		Name:        fi.Name(),
		Category:    category,
		Subcategory: subcategory,
		Path:        path,
		Bytes:       fi.Size(),
		Size:        FormatSize(fi.Size()),
		Modified:    fi.ModTime(),
	}
}

// ValidateName rejects names that are empty or not a single path segment.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// FormatSize renders n bytes in base-1024 units with two decimals, e.g. "12.00 B".
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}
