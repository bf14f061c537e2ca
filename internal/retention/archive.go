package retention

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/animus-labs/smsc-go/internal/simerr"
	"github.com/animus-labs/smsc-go/internal/storage/objectstore"
)

// DayLayout names the dated output directories.
const DayLayout = "060102"

// ArchivePath is the <YYYY>/<Month>/<YYMMDD> location of a day.
func ArchivePath(day time.Time) string {
	return day.Format("2006/January/" + DayLayout)
}

// Destination receives whole day directories, replacing earlier copies.
type Destination interface {
	Replace(ctx context.Context, srcDir, rel string) error
	String() string
}

// ParseDestination maps s3://bucket/prefix onto the object store and
// anything else onto a local directory.
func ParseDestination(raw string, store objectstore.Store) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		if store == nil {
			return nil, simerr.Config("archive", "destination %s needs an object store (SMSC_MINIO_ENDPOINT)", raw)
		}
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, simerr.Config("archive", "destination %s has no bucket", raw)
		}
		return NewObjectDestination(store, bucket, prefix), nil
	}
	if raw == "" {
		return nil, simerr.Config("archive", "empty destination")
	}
	return NewFSDestination(osfs.New(raw), raw), nil
}

// FSDestination writes through a billy filesystem rooted at the archive.
type FSDestination struct {
	fs    billy.Filesystem
	label string
}

func NewFSDestination(fsys billy.Filesystem, label string) *FSDestination {
	return &FSDestination{fs: fsys, label: label}
}

func (d *FSDestination) String() string { return d.label }

func (d *FSDestination) Replace(ctx context.Context, srcDir, rel string) error {
	if err := util.RemoveAll(d.fs, rel); err != nil {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return walkFiles(ctx, srcDir, func(relFile, abs string, info fs.FileInfo) error {
		target := path.Join(rel, relFile)
		if err := d.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
			return err
		}
		in, err := os.Open(abs)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := d.fs.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
}

// ObjectDestination writes keys under bucket/prefix.
type ObjectDestination struct {
	store  objectstore.Store
	bucket string
	prefix string
}

func NewObjectDestination(store objectstore.Store, bucket, prefix string) *ObjectDestination {
	return &ObjectDestination{store: store, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (d *ObjectDestination) String() string {
	return "s3://" + path.Join(d.bucket, d.prefix)
}

func (d *ObjectDestination) Replace(ctx context.Context, srcDir, rel string) error {
	base := path.Join(d.prefix, rel)
	existing, err := d.store.List(ctx, d.bucket, base+"/")
	if err != nil {
		return fmt.Errorf("list %s: %w", base, err)
	}
	for _, obj := range existing {
		if err := d.store.Delete(ctx, d.bucket, obj.Key); err != nil {
			return fmt.Errorf("delete %s: %w", obj.Key, err)
		}
	}
	return walkFiles(ctx, srcDir, func(relFile, abs string, info fs.FileInfo) error {
		in, err := os.Open(abs)
		if err != nil {
			return err
		}
		defer in.Close()
		key := path.Join(base, relFile)
		if err := d.store.Put(ctx, d.bucket, key, in, info.Size(), ""); err != nil {
			return err
		}
		stored, err := d.store.Stat(ctx, d.bucket, key)
		if err != nil {
			return fmt.Errorf("stat %s: %w", key, err)
		}
		if stored.Size != info.Size() {
			return fmt.Errorf("object %s holds %d bytes, want %d", key, stored.Size, info.Size())
		}
		return nil
	})
}

// Mirror copies every dated directory to every destination. The first
// failure stops the mirror; copies already made are kept.
func Mirror(ctx context.Context, logger *slog.Logger, dirs []string, dests []Destination) error {
	for _, dir := range dirs {
		day, err := time.ParseInLocation(DayLayout, filepath.Base(dir), time.UTC)
		if err != nil {
			return simerr.Config("archive", "directory %s is not named %s", dir, DayLayout)
		}
		rel := ArchivePath(day)
		for _, dest := range dests {
			if err := dest.Replace(ctx, dir, rel); err != nil {
				return simerr.IO("archive "+dest.String(), err)
			}
			logger.Info("archived day", "dir", dir, "destination", dest.String(), "path", rel)
		}
	}
	return nil
}

func walkFiles(ctx context.Context, root string, fn func(rel, abs string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), abs, info)
	})
}
