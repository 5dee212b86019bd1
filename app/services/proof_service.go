package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/storage"
)

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

// proofTypes maps accepted content types to the stored extension.
var proofTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// ProofUpload is one uploaded payment proof file.
type ProofUpload struct {
	Reader   io.Reader
	Size     int64
	Filename string
	// Declared is the client's Content-Type, used only when sniffing is
	// inconclusive.
	Declared string
}

// StoredProof describes a file written to the disk.
type StoredProof struct {
	Path        string
	ContentType string
}

// ProofStore validates and stores payment proof files.
type ProofStore struct {
	disk     storage.Disk
	maxBytes int64
	now      func() time.Time
}

func NewProofStore(disk storage.Disk, maxBytes int64) *ProofStore {
	return &ProofStore{disk: disk, maxBytes: maxBytes, now: time.Now}
}

// MaxBytes is the per-file limit.
func (s *ProofStore) MaxBytes() int64 { return s.maxBytes }

// Save checks size and type, then writes the file under
// payments/proof-<unixMillis>-<random><ext>.
func (s *ProofStore) Save(ctx context.Context, up ProofUpload) (StoredProof, error) {
	if up.Size > s.maxBytes {
		return StoredProof{}, apperr.PayloadTooLarge("File too large, max %d MB", s.maxBytes>>20)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return StoredProof{}, apperr.Internal(err, "read upload")
	}
	head = head[:n]
	if n == 0 {
		return StoredProof{}, apperr.Validation("Uploaded file is empty")
	}

	contentType, ok := detectProofType(head, up.Declared)
	if !ok {
		return StoredProof{}, apperr.UnsupportedMediaType("Only JPEG, PNG and PDF files are allowed")
	}

	path := fmt.Sprintf("payments/proof-%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], proofTypes[contentType])

	// Guard the size again in case the declared size lied.
	body := io.MultiReader(bytes.NewReader(head), up.Reader)
	limited := &limitReader{r: body, left: s.maxBytes}
	if err := s.disk.Put(ctx, path, limited, up.Size, contentType); err != nil {
		if limited.exceeded {
			return StoredProof{}, apperr.PayloadTooLarge("File too large, max %d MB", s.maxBytes>>20)
		}
		return StoredProof{}, apperr.Internal(err, "store payment proof")
	}
	if limited.exceeded {
		s.Delete(ctx, path)
		return StoredProof{}, apperr.PayloadTooLarge("File too large, max %d MB", s.maxBytes>>20)
	}
	return StoredProof{Path: path, ContentType: contentType}, nil
}

// Open returns the stored file.
func (s *ProofStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.disk.Open(ctx, path)
	if err == storage.ErrNotFound {
		return nil, apperr.NotFound("Payment proof file not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "open payment proof")
	}
	return rc, nil
}

// Delete removes a stored file. Failures are logged, not returned.
func (s *ProofStore) Delete(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.disk.Delete(ctx, path); err != nil {
		logger.WithCtx(ctx).Warn("proof: delete failed", "path", path, "error", err)
	}
}

// detectProofType sniffs head and falls back to the declared header only
// when sniffing finds nothing specific.
func detectProofType(head []byte, declared string) (string, bool) {
	mt := mimetype.Detect(head)
	for m := mt; m != nil; m = m.Parent() {
		if _, ok := proofTypes[m.String()]; ok {
			return m.String(), true
		}
	}
	if mt.Is("application/octet-stream") {
		d := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
		if d == "image/jpg" {
			d = "image/jpeg"
		}
		if _, ok := proofTypes[d]; ok {
			return d, true
		}
	}
	return "", false
}

// limitReader fails once more than left bytes have been read.
type limitReader struct {
	r        io.Reader
	left     int64
	exceeded bool
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		l.exceeded = true
		return n, fmt.Errorf("upload exceeds limit")
	}
	return n, err
}
