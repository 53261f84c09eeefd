package fsstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rainycape/vfs"
)

// ContextFileStore implements the one-file-per-entry layout of spec §6.3:
// filename <EntryId>.md, a `---`-fenced header, "Missing directory on read
// → empty. Directory is created lazily on first write."
type ContextFileStore struct {
	fs  vfs.VFS
	dir string
}

func NewContextFileStore(fs vfs.VFS, dir string) *ContextFileStore {
	return &ContextFileStore{fs: fs, dir: dir}
}

// RawEntry is the pre-serialization shape the registry layer hands this
// store — category/body/tags/etc, independent of any in-memory Go type so
// the sealing wrapper in internal/contextstore can sit in front of it
// without this package depending on that one.
type RawEntry struct {
	EntryId       string
	Content       string
	Category      string
	Tags          []string
	ReferenceCode string
	CreatedAt     time.Time
}

func (s *ContextFileStore) path(entryId string) string {
	if s.dir == "" {
		return entryId + ".md"
	}
	return s.dir + "/" + entryId + ".md"
}

// Store writes (or overwrites) one entry as its own file.
func (s *ContextFileStore) Store(ctx context.Context, e RawEntry) error {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "entryId: %s\n", e.EntryId)
	fmt.Fprintf(&b, "category: %s\n", e.Category)
	fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(e.Tags, ", "))
	if e.ReferenceCode != "" {
		fmt.Fprintf(&b, "referenceCode: %s\n", e.ReferenceCode)
	}
	fmt.Fprintf(&b, "createdAt: %s\n", e.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString("---\n")
	b.WriteString(e.Content)
	return writeFile(s.fs, s.dir, s.path(e.EntryId), []byte(b.String()))
}

// List returns every entry currently stored, in no particular order — the
// registry layer is responsible for the CreatedAt-descending ordering and
// filter application spec §4.3 requires.
func (s *ContextFileStore) List(ctx context.Context) ([]RawEntry, error) {
	names, err := s.listNames()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]RawEntry, 0, len(names))
	for _, n := range names {
		raw, err := readFile(s.fs, n)
		if err != nil || raw == nil {
			continue
		}
		entry, ok := parseEntry(string(raw))
		if ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *ContextFileStore) listNames() ([]string, error) {
	dir := s.dir
	if dir == "" {
		dir = "."
	}
	f, err := s.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".md") {
			continue
		}
		names = append(names, s.dir+"/"+fi.Name())
	}
	return names, nil
}

func parseEntry(raw string) (RawEntry, bool) {
	parts := strings.SplitN(raw, "---\n", 3)
	if len(parts) < 3 {
		return RawEntry{}, false
	}
	header, body := parts[1], parts[2]
	var e RawEntry
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		switch key {
		case "entryId":
			e.EntryId = val
		case "category":
			e.Category = val
		case "tags":
			val = strings.TrimPrefix(val, "[")
			val = strings.TrimSuffix(val, "]")
			if val != "" {
				for _, t := range strings.Split(val, ",") {
					e.Tags = append(e.Tags, strings.TrimSpace(t))
				}
			}
		case "referenceCode":
			e.ReferenceCode = val
		case "createdAt":
			if ts, err := time.Parse(time.RFC3339, val); err == nil {
				e.CreatedAt = ts
			}
		}
	}
	e.Content = body
	return e, e.EntryId != ""
}
