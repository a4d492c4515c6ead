// Package file stores cache entries on the local filesystem.
//
// A storage key "<dir>/<a>/<b>" maps to the file "<dir>/<a>/<b>.cache"; its
// lock marker is the sibling "<dir>/<a>/<b>.lock". Entries are written to a
// temp file and renamed into place, so a reader never sees a torn entry.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	pr "github.com/unkn0wn-root/cachekit/provider"
)

const (
	dataExt = ".cache"
	lockExt = ".lock"
)

type Provider struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
	owner    []byte
}

var (
	_ pr.Provider = (*Provider)(nil)
	_ pr.Preparer = (*Provider)(nil)
)

type Config struct {
	DirPerm  os.FileMode // 0 => 0o755
	FilePerm os.FileMode // 0 => 0o644
}

func New(cfg Config) *Provider {
	p := &Provider{
		dirPerm:  cfg.DirPerm,
		filePerm: cfg.FilePerm,
		owner:    []byte(strconv.Itoa(os.Getpid())),
	}
	if p.dirPerm == 0 {
		p.dirPerm = 0o755
	}
	if p.filePerm == 0 {
		p.filePerm = 0o644
	}
	return p
}

func fsPath(key string) string { return filepath.FromSlash(key) }

// Prepare creates dir and any missing parents.
func (p *Provider) Prepare(dir string) error {
	return os.MkdirAll(fsPath(dir), p.dirPerm)
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := os.ReadFile(fsPath(key) + dataExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDir(fsPath(key)+dataExt) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Set ignores ttl; cachekit keeps expiry in the entry header.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if err := p.writeFile(fsPath(key)+dataExt, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	return removeFile(fsPath(key) + dataExt)
}

// Clear removes "<prefix>.cache" and every "*.cache" file below the directory
// prefix. Lock markers, in-flight temp files and directories are left alone, so
// a writer racing the clear still finds its marker and its target directory.
// Temp files end in ".tmp-*" and never match.
func (p *Provider) Clear(_ context.Context, prefix string) error {
	dir := fsPath(prefix)
	if err := removeFile(dir + dataExt); err != nil {
		return err
	}
	var errs []error
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), dataExt) {
			return nil
		}
		if err := removeFile(name); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LockedUnder lists "<prefix>.lock" and every "*.lock" below the directory prefix.
func (p *Provider) LockedUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	if locked, err := p.IsLocked(ctx, prefix); err != nil {
		return nil, err
	} else if locked {
		keys = append(keys, prefix)
	}

	dir := fsPath(prefix)
	err := filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), lockExt) {
			return nil
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		keys = append(keys, joinKey(prefix, strings.TrimSuffix(filepath.ToSlash(rel), lockExt)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (p *Provider) Lock(_ context.Context, key string) error {
	return p.writeFile(fsPath(key)+lockExt, p.owner)
}

func (p *Provider) Unlock(_ context.Context, key string) error {
	return removeFile(fsPath(key) + lockExt)
}

func (p *Provider) IsLocked(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(fsPath(key) + lockExt)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (p *Provider) Close(context.Context) error { return nil }

// writeFile writes atomically: temp file in the target dir, then rename.
func (p *Provider) writeFile(name string, data []byte) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, p.dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, p.filePerm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		cleanup()
		return err
	}
	return nil
}

func removeFile(name string) error {
	err := os.Remove(name)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if isDir(name) {
		return nil
	}
	return err
}

func joinKey(prefix, rel string) string {
	if strings.HasSuffix(prefix, "/") {
		return prefix + rel
	}
	return prefix + "/" + rel
}

func isDir(name string) bool {
	fi, err := os.Stat(name)
	return err == nil && fi.IsDir()
}

