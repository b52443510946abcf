package rank

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	apperrors "github.com/siterank/siterank/pkg/errors"
)

// Archive magic numbers used to sniff the compression format.
var (
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
	gzipMagic = []byte{0x1f, 0x8b}
)

// BuildFromArchive decompresses the cached ranking archive and parses its
// single member into a fresh Index. ZIP and gzip archives are recognized by
// their magic bytes.
//
// On any archive-level failure (unreadable file, unknown format, corrupt or
// truncated stream, no member) the cache file at path is deleted before the
// error is returned, so the next initialization re-fetches instead of
// looping on broken data. A member that parses to zero entries is not an
// error; it yields an empty index.
func BuildFromArchive(path string) (*Index, error) {
	idx, err := buildFromArchive(path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("%w: %v (cache file not removed: %v)", apperrors.ErrIndexBuild, err, rmErr)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexBuild, err)
	}
	return idx, nil
}

func buildFromArchive(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %v", err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("reading archive header: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding archive: %v", err)
	}

	switch {
	case bytes.HasPrefix(magic[:], zipMagic):
		return buildFromZip(f)
	case bytes.HasPrefix(magic[:], gzipMagic):
		return buildFromGzip(f)
	default:
		return nil, fmt.Errorf("unrecognized archive format (magic % x)", magic)
	}
}

func buildFromZip(f *os.File) (*Index, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %v", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("opening zip archive: %v", err)
	}

	// The archive is expected to hold exactly one member; take the first
	// regular file and ignore any directories.
	for _, member := range zr.File {
		if member.FileInfo().IsDir() {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("opening zip member %s: %v", member.Name, err)
		}
		idx, err := Parse(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decompressing zip member %s: %v", member.Name, err)
		}
		return idx, nil
	}
	return nil, fmt.Errorf("zip archive contains no readable member")
}

func buildFromGzip(f *os.File) (*Index, error) {
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %v", err)
	}
	defer gz.Close()

	idx, err := Parse(gz)
	if err != nil {
		return nil, fmt.Errorf("decompressing gzip stream: %v", err)
	}
	return idx, nil
}
