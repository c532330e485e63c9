// Package fingerprint computes the document identifiers used as keys for
// progress records on a KOReader-compatible sync server.
//
// Two methods exist: hashing the extension-stripped filename, and a partial
// content hash that samples fixed-size chunks at exponentially spaced offsets
// instead of reading the whole file. The binary method must match KOReader's
// fastDigest byte for byte, otherwise two devices disagree on which remote
// record belongs to a book.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
)

const (
	step      = 1024
	chunkSize = 1024
)

// Method selects how a document identifier is derived.
type Method string

const (
	// MethodBinary samples the file content (default).
	MethodBinary Method = "binary"
	// MethodFilename hashes the extension-stripped filename.
	MethodFilename Method = "filename"
)

// FromFilename returns the lowercase hex MD5 of the file's base name with
// its extension stripped.
func FromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	sum := md5.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// FromFile computes the partial content hash. Chunks of 1024 bytes are read
// at offset 0 and then at 1024<<0, 1024<<2, ... 1024<<20, stopping at the
// first offset past the end of the file.
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()

	h := md5.New()
	buf := make([]byte, chunkSize)
	for i := -1; i <= 10; i++ {
		var start int64
		if i >= 0 {
			start = int64(step) << (2 * i)
		}
		if start >= size {
			break
		}
		end := start + chunkSize
		if end > size {
			end = size
		}
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && err != io.EOF {
			return "", err
		}
		h.Write(buf[:n])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DocumentID resolves the sync document id for a book. Under the binary
// method a checksum cached on the record wins; an unreadable file degrades
// to the filename method rather than failing the sync.
func DocumentID(book *entities.Book, method Method) string {
	if method == MethodFilename {
		return FromFilename(book.FilePath)
	}

	if book.PartialMD5Checksum != nil && *book.PartialMD5Checksum != "" {
		return *book.PartialMD5Checksum
	}

	sum, err := FromFile(book.FilePath)
	if err != nil {
		log.Printf("fingerprint: falling back to filename method for %q: %v", book.FilePath, err)
		return FromFilename(book.FilePath)
	}
	return sum
}
