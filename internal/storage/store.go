package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,62}$`)

// Store keeps buckets as directories under a root folder
type Store struct {
	root          string
	baseURL       string
	secret        []byte
	publicBuckets map[string]bool
	maxSize       int64
	now           func() time.Time
}

type Options struct {
	Root          string
	BaseURL       string // scheme://host the download routes are served from
	Secret        string
	PublicBuckets []string
	MaxUploadSize int64
}

func NewStore(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	public := make(map[string]bool, len(opts.PublicBuckets))
	for _, b := range opts.PublicBuckets {
		public[b] = true
	}
	return &Store{
		root:          opts.Root,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		secret:        []byte(opts.Secret),
		publicBuckets: public,
		maxSize:       opts.MaxUploadSize,
		now:           time.Now,
	}, nil
}

// CleanPath normalises an object path and rejects anything that would leave
// the bucket. An empty result means the bucket root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.Contains(p, "\x00") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := strings.Trim(path.Clean("/"+p), "/")
	return cleaned, nil
}

func (s *Store) resolve(bucket, p string) (string, string, error) {
	if !bucketPattern.MatchString(bucket) {
		return "", "", ErrInvalidBucket
	}
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", "", err
	}
	full := filepath.Join(s.root, bucket, filepath.FromSlash(cleaned))
	return full, cleaned, nil
}

func (s *Store) resolveFile(bucket, p string) (string, string, error) {
	full, cleaned, err := s.resolve(bucket, p)
	if err != nil {
		return "", "", err
	}
	if cleaned == "" {
		return "", "", ErrInvalidPath
	}
	return full, cleaned, nil
}

// IsPublic reports whether bucket can be read without a signature
func (s *Store) IsPublic(bucket string) bool {
	return s.publicBuckets[bucket]
}

// List returns one level of the bucket below prefix
func (s *Store) List(bucket, prefix string, opts ListOptions) ([]Object, error) {
	dir, _, err := s.resolve(bucket, prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Object{}, nil
		}
		return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		obj := Object{Name: e.Name()}
		if !e.IsDir() {
			info, err := e.Info()
			if err != nil {
				continue
			}
			id := objectID(bucket, path.Join(prefix, e.Name()))
			mod := info.ModTime()
			obj.ID = &id
			obj.Size = info.Size()
			obj.UpdatedAt = &mod
		}
		objects = append(objects, obj)
	}

	sortObjects(objects, opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if opts.Offset >= len(objects) {
		return []Object{}, nil
	}
	end := opts.Offset + limit
	if end > len(objects) {
		end = len(objects)
	}
	return objects[opts.Offset:end], nil
}

func sortObjects(objects []Object, opts ListOptions) {
	less := func(a, b Object) bool { return a.Name < b.Name }
	if opts.SortBy == SortByUpdatedAt {
		less = func(a, b Object) bool {
			// folders carry no timestamp and sort first
			switch {
			case a.UpdatedAt == nil && b.UpdatedAt == nil:
				return a.Name < b.Name
			case a.UpdatedAt == nil:
				return true
			case b.UpdatedAt == nil:
				return false
			}
			return a.UpdatedAt.Before(*b.UpdatedAt)
		}
	}
	sort.SliceStable(objects, func(i, j int) bool {
		if opts.Desc {
			return less(objects[j], objects[i])
		}
		return less(objects[i], objects[j])
	})
}

// ListAllFilesRecursive walks every folder below root, one page at a time
func (s *Store) ListAllFilesRecursive(bucket, root string) ([]File, error) {
	root, err := CleanPath(root)
	if err != nil {
		return nil, err
	}

	var files []File
	var walk func(dir string) error
	walk = func(dir string) error {
		for offset := 0; ; offset += DefaultListLimit {
			page, err := s.List(bucket, dir, ListOptions{Limit: DefaultListLimit, Offset: offset, SortBy: SortByName})
			if err != nil {
				return err
			}
			for _, obj := range page {
				full := obj.Name
				if dir != "" {
					full = dir + "/" + obj.Name
				}
				if obj.IsFolder() {
					if err := walk(full); err != nil {
						return err
					}
					continue
				}
				files = append(files, File{Path: full, Name: obj.Name})
			}
			if len(page) < DefaultListLimit {
				return nil
			}
		}
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return files, nil
}

// Upload writes r to bucket/p. Without Upsert an existing object is an error.
func (s *Store) Upload(bucket, p string, r io.Reader, opts UploadOptions) (string, error) {
	full, cleaned, err := s.resolveFile(bucket, p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	if !opts.Upsert {
		if _, err := os.Stat(full); err == nil {
			return "", ErrObjectExists
		}
	}

	// write to a temp file first so readers never see half an object
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", ErrTooLarge
	}

	if !opts.Upsert {
		// Link fails if another upload won the race
		if err := os.Link(tmp.Name(), full); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return "", ErrObjectExists
			}
			return "", fmt.Errorf("store object: %w", err)
		}
		return cleaned, nil
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return cleaned, nil
}

// Remove deletes the given objects and returns how many existed
func (s *Store) Remove(bucket string, paths []string) (int, error) {
	removed := 0
	for _, p := range paths {
		full, _, err := s.resolveFile(bucket, p)
		if err != nil {
			return removed, err
		}
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(full); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed++
	}
	return removed, nil
}

// Open returns the object file for serving
func (s *Store) Open(bucket, p string) (*os.File, fs.FileInfo, error) {
	full, _, err := s.resolveFile(bucket, p)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, nil, ErrObjectNotFound
	}
	return f, info, nil
}

// PublicURL is the unsigned download address of an object
func (s *Store) PublicURL(bucket, p string) string {
	cleaned, err := CleanPath(p)
	if err != nil {
		cleaned = ""
	}
	return s.baseURL + "/storage/public/" + bucket + "/" + escapePath(cleaned)
}

type signedClaims struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

// CreateSignedURL returns a download address valid for expiresIn
func (s *Store) CreateSignedURL(bucket, p string, expiresIn time.Duration) (string, time.Time, error) {
	_, cleaned, err := s.resolveFile(bucket, p)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := s.now().Add(expiresIn)
	claims := signedClaims{
		Bucket: bucket,
		Path:   cleaned,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "storage",
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign url: %w", err)
	}

	u := s.baseURL + "/storage/signed/" + bucket + "/" + escapePath(cleaned) + "?token=" + url.QueryEscape(token)
	return u, expiresAt, nil
}

// VerifySignature checks that token grants access to bucket/p
func (s *Store) VerifySignature(bucket, p, token string) error {
	cleaned, err := CleanPath(p)
	if err != nil {
		return err
	}

	var claims signedClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidSignature
	}
	if claims.Subject != "storage" || claims.Bucket != bucket || claims.Path != cleaned {
		return ErrInvalidSignature
	}
	return nil
}

func objectID(bucket, p string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(bucket+"/"+p)).String()
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
