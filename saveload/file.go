package saveload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsengine/vsengine/vmmem"
)

// SaveFileManager abstracts the save-file directory (makeSaveName's
// target) so tests can exercise Store without touching disk, the way
// the original's Common::SaveFileManager decouples the engine from a
// concrete filesystem.
type SaveFileManager interface {
	Exists(name string) bool
	OpenForLoading(name string) (io.ReadCloser, error)
	OpenForSaving(name string) (io.WriteCloser, error)
}

// DirFileManager is a SaveFileManager backed by a plain directory on
// disk.
type DirFileManager struct {
	Dir string
}

func (d DirFileManager) path(name string) string { return filepath.Join(d.Dir, name) }

// Exists reports whether name is present in the save directory.
func (d DirFileManager) Exists(name string) bool {
	_, err := os.Stat(d.path(name))
	return err == nil
}

// OpenForLoading opens name for reading.
func (d DirFileManager) OpenForLoading(name string) (io.ReadCloser, error) {
	return os.Open(d.path(name))
}

// OpenForSaving creates or truncates name for writing.
func (d DirFileManager) OpenForSaving(name string) (io.WriteCloser, error) {
	return os.Create(d.path(name))
}

// MakeSaveName builds the per-slot save file name: the game's main
// executable name, uppercased, with any ".EXE" suffix stripped,
// followed by the slot number and extension (makeSaveName).
func MakeSaveName(main string, id int, ext string) string {
	tmp := strings.ToUpper(main)
	if idx := strings.Index(tmp, ".EXE"); idx != -1 {
		tmp = tmp[:idx]
	}
	return fmt.Sprintf("%s%d.%s", tmp, id, ext)
}

// Store drives the on-disk save/load file format: a StateHeader
// prefix followed by two XOR-sequence-described VM memory banks.
type Store struct {
	Files SaveFileManager
	Mem   *vmmem.Memory
	Seqs  KeySequences

	// RunReadDataMode mirrors _runReadDataMod: true around a module's
	// initial "read saved dialogue state" boot sequence, false for
	// the ordinary in-game quick-save/quick-load path.
	RunReadDataMode bool
}

// WriteStateFile persists header and the VM's two scrambled memory
// banks to slot id's save file (writeStateFile). Outside
// RunReadDataMode, a missing save file is left untouched and only the
// VM banks of an existing one are refreshed, preserving its header.
func (s *Store) WriteStateFile(header StateHeader, gameID string, id int, ext string) error {
	name := MakeSaveName(gameID, id, ext)

	if !s.RunReadDataMode {
		if !s.Files.Exists(name) {
			return nil
		}
		rf, err := s.Files.OpenForLoading(name)
		if err != nil {
			return fmt.Errorf("saveload: WriteStateFile: %w", err)
		}
		hbuf := make([]byte, HeaderSize)
		_, err = io.ReadFull(rf, hbuf)
		rf.Close()
		if err != nil {
			return fmt.Errorf("saveload: WriteStateFile: reading existing header: %w", err)
		}
		return s.writeBanks(name, hbuf)
	}

	header.Fld10 = 0
	return s.writeBanks(name, WriteStateHeader(header))
}

func (s *Store) writeBanks(name string, header []byte) error {
	wf, err := s.Files.OpenForSaving(name)
	if err != nil {
		return fmt.Errorf("saveload: WriteStateFile: %w", err)
	}
	defer wf.Close()
	if _, err := wf.Write(header); err != nil {
		return fmt.Errorf("saveload: WriteStateFile: %w", err)
	}
	if err := WriteVMData(wf, s.Mem, s.Seqs.Regions[0], s.Seqs.Key); err != nil {
		return err
	}
	return WriteVMData(wf, s.Mem, s.Seqs.Regions[1], s.Seqs.Key)
}

// LoadStateFile restores the VM's two memory banks from slot id's
// save file (loadStateFile). Outside RunReadDataMode it restores only
// the VM banks, leaving the header ignored, matching the original's
// skip of the header on an ordinary quick-load; loaded reports
// whether a header was read back (only true in RunReadDataMode, on an
// existing file).
func (s *Store) LoadStateFile(gameID string, id int, ext string) (header StateHeader, loaded bool, err error) {
	name := MakeSaveName(gameID, id, ext)

	if !s.RunReadDataMode {
		if !s.Files.Exists(name) {
			return StateHeader{}, false, nil
		}
		rf, oerr := s.Files.OpenForLoading(name)
		if oerr != nil {
			return StateHeader{}, false, fmt.Errorf("saveload: LoadStateFile: %w", oerr)
		}
		defer rf.Close()
		if _, err := io.CopyN(io.Discard, rf, HeaderSize); err != nil {
			return StateHeader{}, false, fmt.Errorf("saveload: LoadStateFile: %w", err)
		}
		if err := ReadVMData(rf, s.Mem, s.Seqs.Regions[0], s.Seqs.Key); err != nil {
			return StateHeader{}, false, err
		}
		if err := ReadVMData(rf, s.Mem, s.Seqs.Regions[1], s.Seqs.Key); err != nil {
			return StateHeader{}, false, err
		}
		return StateHeader{}, false, nil
	}

	if !s.Files.Exists(name) {
		return StateHeader{}, false, s.WriteStateFile(StateHeader{}, gameID, id, ext)
	}

	rf, oerr := s.Files.OpenForLoading(name)
	if oerr != nil {
		return StateHeader{}, false, fmt.Errorf("saveload: LoadStateFile: %w", oerr)
	}
	defer rf.Close()

	hbuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(rf, hbuf); err != nil {
		return StateHeader{}, false, fmt.Errorf("saveload: LoadStateFile: %w", err)
	}
	header, err = ReadStateHeader(hbuf)
	if err != nil {
		return StateHeader{}, false, err
	}
	if err := ReadVMData(rf, s.Mem, s.Seqs.Regions[0], s.Seqs.Key); err != nil {
		return StateHeader{}, false, err
	}
	if err := ReadVMData(rf, s.Mem, s.Seqs.Regions[1], s.Seqs.Key); err != nil {
		return StateHeader{}, false, err
	}
	ZeroVMData(s.Mem, s.Seqs.Regions[1])
	s.RunReadDataMode = false

	return header, true, nil
}
