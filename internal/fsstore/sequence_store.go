package fsstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rainycape/vfs"

	"github.com/cortexrt/runtime/internal/refcode"
)

// sequenceFileName is the single JSON file described by spec §6.2.
const sequenceFileName = "sequence.json"

type sequenceFile struct {
	Date     string `json:"date"`
	Sequence int    `json:"sequence"`
}

// SequenceStore implements refcode.SequenceStore against a vfs.VFS, per
// spec §6.2: "Missing file: zero state. Malformed content: zero state
// (self-healing read)."
type SequenceStore struct {
	fs vfs.VFS
}

func NewSequenceStore(fs vfs.VFS) *SequenceStore {
	return &SequenceStore{fs: fs}
}

func (s *SequenceStore) Load(ctx context.Context) (refcode.SequenceState, error) {
	raw, err := readFile(s.fs, sequenceFileName)
	if err != nil {
		return refcode.SequenceState{}, err
	}
	if raw == nil {
		return refcode.SequenceState{}, nil
	}
	var sf sequenceFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		// corrupt payload: self-heal to zero state rather than error.
		return refcode.SequenceState{}, nil
	}
	date, err := time.Parse("2006-01-02", sf.Date)
	if err != nil {
		return refcode.SequenceState{}, nil
	}
	return refcode.SequenceState{Date: date, Sequence: sf.Sequence}, nil
}

func (s *SequenceStore) Save(ctx context.Context, state refcode.SequenceState) error {
	sf := sequenceFile{Date: state.Date.UTC().Format("2006-01-02"), Sequence: state.Sequence}
	raw, err := json.Marshal(sf)
	if err != nil {
		return err
	}
	return writeFile(s.fs, "", sequenceFileName, raw)
}
