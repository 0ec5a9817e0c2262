// Package emitter holds what the language emitters share: the plan of files
// a run intends to write and the atomic writer that puts them on disk.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Header is the first line of every generated file.
const Header = "Code generated by openrpc-generator. DO NOT EDIT."

// File is one rendered output file.
type File struct {
	Path    string
	Content []byte
	// Once marks a file that is only written when it does not exist yet,
	// so hand edits survive regeneration.
	Once bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	Path string
	Size int
	Mode os.FileMode
	// Skipped is set for a write-once file that already exists.
	Skipped bool
}

// Result returns the planned files of one emit run.
type Result struct {
	Planned []PlannedFile
}

// Plan reports what Write would do with files, in the order given.
func Plan(files []File, force bool) []PlannedFile {
	planned := make([]PlannedFile, 0, len(files))
	for _, f := range files {
		planned = append(planned, PlannedFile{
			Path:    filepath.Clean(f.Path),
			Size:    len(f.Content),
			Mode:    0o644,
			Skipped: f.Once && !force && exists(f.Path),
		})
	}
	return planned
}

// Write writes every file atomically. Write-once files that already exist
// are left alone unless force is set. Every file is staged in a temporary
// file before the first one is renamed into place, so a failure while
// staging leaves the targets untouched.
func Write(ctx context.Context, files []File, force bool) error {
	type staged struct {
		tmp, path string
	}
	var pending []staged
	cleanup := func() {
		for _, st := range pending {
			os.Remove(st.tmp)
		}
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		if f.Once && !force && exists(f.Path) {
			continue
		}
		tmp, err := stage(f.Path, f.Content, 0o644)
		if err != nil {
			cleanup()
			return fmt.Errorf("write file %s: %w", f.Path, err)
		}
		pending = append(pending, staged{tmp: tmp, path: f.Path})
	}
	for i, st := range pending {
		if err := os.Rename(st.tmp, st.path); err != nil {
			pending = pending[i:]
			cleanup()
			return fmt.Errorf("write file %s: atomic rename: %w", st.path, err)
		}
	}
	return nil
}

// exists reports whether a file other than a directory is at path.
func exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// WriteFileAtomic writes content to a temporary file next to path and
// renames it into place, so readers never observe a partial file.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	tmp, err := stage(path, content, mode)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("atomic rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// stage writes content to a synced temporary file in the directory of path
// and returns its name.
func stage(path string, content []byte, mode os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return "", fmt.Errorf("output path %q is a directory", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("cannot access %q: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure target directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-openrpc-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
		}
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		return "", fmt.Errorf("write content to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Chmod(mode); err != nil {
		return "", fmt.Errorf("set file permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil
	success = true
	return tmpPath, nil
}
