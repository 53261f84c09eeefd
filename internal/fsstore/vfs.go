// Package fsstore provides the reference-implementation persistence layer
// for the sequence store (spec §6.2) and the context file store (spec
// §6.3), built on github.com/rainycape/vfs so tests can run against an
// in-memory filesystem and production can point at a local directory
// without any code change — the same "swap the backend" shape the teacher
// used for its NATS domains.
package fsstore

import (
	"fmt"
	"os"

	"github.com/rainycape/vfs"
)

// OpenLocal opens a vfs.VFS rooted at dir on the local filesystem.
func OpenLocal(dir string) (vfs.VFS, error) {
	fs, err := vfs.FS("file://" + dir)
	if err != nil {
		return nil, fmt.Errorf("fsstore: open local vfs at %s: %w", dir, err)
	}
	return fs, nil
}

// OpenMem opens an in-memory vfs.VFS, used by tests in place of a local
// directory.
func OpenMem() (vfs.VFS, error) {
	fs, err := vfs.FS("mem://")
	if err != nil {
		return nil, fmt.Errorf("fsstore: open mem vfs: %w", err)
	}
	return fs, nil
}

// readFile reads the full contents of name, treating a missing file as
// (nil, nil) rather than an error — callers self-heal to a zero state.
func readFile(fs vfs.VFS, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, rerr := f.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

// writeFile writes data to name, creating parent directories lazily and
// truncating any existing content (last-write-wins, spec §6.2/§6.3).
func writeFile(fs vfs.VFS, dir, name string, data []byte) error {
	if dir != "" {
		if err := fs.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("fsstore: mkdir %s: %w", dir, err)
		}
	}
	f, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("fsstore: open %s for write: %w", name, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("fsstore: write %s: %w", name, err)
	}
	return nil
}
