// Package lasio reads uncompressed LAS files: public header, VLRs, and
// one point record at a time. It is the stream side of the tool; the
// checking core consumes only the decoded Header and Point values and can
// be driven by any other decoder.
package lasio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/johns/lascheck/internal/lasfmt"
)

// ErrCompressedInput marks a LAZ file: the compressed point payload is
// out of scope for this tool.
var ErrCompressedInput = errors.New("compressed point data (LAZ) not supported")

// ErrUnsupportedFormat marks a point data format outside 0-10.
var ErrUnsupportedFormat = errors.New("unsupported point data format")

// Reader decodes one LAS file sequentially. Exactly one Reader may be
// open for a path at a time, and it must be closed before any repair
// writes to the same path.
type Reader struct {
	f       *os.File
	cleanup func()

	Header *lasfmt.Header
	VLRs   []VLR
	Attrs  []ExtraAttribute

	recSize int
	index   uint64
	limit   uint64
	buf     []byte
}

// Open opens path for reading and decodes the header and VLRs. Inputs
// ending in .zst are transparently decompressed to a temp file first;
// .laz inputs are rejected.
func Open(path string) (*Reader, error) {
	cleanup := func() {}
	if strings.HasSuffix(path, ".zst") {
		tmp, rm, err := decompress(path)
		if err != nil {
			return nil, err
		}
		path, cleanup = tmp, rm
	}
	if strings.HasSuffix(path, ".laz") {
		cleanup()
		return nil, fmt.Errorf("%s: %w", path, ErrCompressedInput)
	}

	f, err := os.Open(path)
	if err != nil {
		cleanup()
		return nil, err
	}

	r := &Reader{f: f, cleanup: cleanup}
	if err := r.init(); err != nil {
		f.Close()
		cleanup()
		return nil, err
	}
	return r, nil
}

func (r *Reader) init() error {
	raw := make([]byte, lasfmt.HeaderSize14)
	n, err := io.ReadFull(r.f, raw)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read header: %w", err)
	}

	h, err := lasfmt.Decode(raw[:n])
	if err != nil {
		return err
	}
	r.Header = h

	// Compression flag in the point format byte means LAZ even when the
	// file extension says otherwise.
	if h.PointFormat&0x80 != 0 {
		return ErrCompressedInput
	}
	if _, ok := baseRecordSize[h.PointFormat]; !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.PointFormat)
	}
	if int(h.RecordLength) < baseRecordSize[h.PointFormat] {
		return fmt.Errorf("record length %d below format %d minimum %d",
			h.RecordLength, h.PointFormat, baseRecordSize[h.PointFormat])
	}
	r.recSize = int(h.RecordLength)

	// EVLRs sit after the point data in 1.4 files; the point stream ends
	// at their start, not at EOF.
	r.limit = math.MaxUint64
	if h.EVLRStart != 0 && h.EVLRStart >= uint64(h.OffsetToPoints) {
		r.limit = (h.EVLRStart - uint64(h.OffsetToPoints)) / uint64(r.recSize)
	}

	if err := r.readVLRs(); err != nil {
		return err
	}
	return r.Seek(0)
}

func (r *Reader) readVLRs() error {
	h := r.Header
	if h.VLRCount == 0 {
		return nil
	}
	if h.OffsetToPoints < uint32(h.HeaderSize) {
		return fmt.Errorf("%w: point data offset %d inside header", lasfmt.ErrMalformedHeader, h.OffsetToPoints)
	}
	info, err := r.f.Stat()
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if int64(h.OffsetToPoints) > info.Size() {
		return fmt.Errorf("%w: point data offset %d beyond end of file (%d bytes)", lasfmt.ErrMalformedHeader, h.OffsetToPoints, info.Size())
	}

	region := make([]byte, h.OffsetToPoints-uint32(h.HeaderSize))
	if _, err := r.f.ReadAt(region, int64(h.HeaderSize)); err != nil {
		return fmt.Errorf("read vlr region: %w", err)
	}

	off := 0
	for i := uint32(0); i < h.VLRCount; i++ {
		v, n := decodeVLR(region[off:])
		if n == 0 {
			break // truncated VLR region, keep what decoded cleanly
		}
		r.VLRs = append(r.VLRs, v)
		off += n

		if v.UserID == specUserID && v.RecordID == extraBytesRecordID {
			r.Attrs = parseExtraAttributes(v.Payload)
		}
	}
	return nil
}

// Seek positions the stream at the given record index.
func (r *Reader) Seek(index uint64) error {
	off := int64(r.Header.OffsetToPoints) + int64(index)*int64(r.recSize)
	if _, err := r.f.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek record %d: %w", index, err)
	}
	r.index = index
	return nil
}

// ReadNext decodes the next point record, returning io.EOF when the
// stream is exhausted. The returned Point is freshly allocated each call.
func (r *Reader) ReadNext() (*Point, error) {
	if r.index >= r.limit {
		return nil, io.EOF
	}
	if r.buf == nil {
		r.buf = make([]byte, r.recSize)
	}
	if _, err := io.ReadFull(r.f, r.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record %d: %w", r.index, err)
	}

	var p Point
	decodePoint(r.buf, r.Header.PointFormat, r.Attrs, &p)
	r.index++
	return &p, nil
}

// Index returns the index of the next record ReadNext will decode.
func (r *Reader) Index() uint64 { return r.index }

// Close releases the file handle and any decompression temp file.
func (r *Reader) Close() error {
	err := r.f.Close()
	r.cleanup()
	return err
}

// decompress writes the zstd-compressed file at path to a temp file and
// returns the temp path with a cleanup func the caller must run.
func decompress(path string) (string, func(), error) {
	src, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return "", nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	tmp, err := os.CreateTemp("", "lascheck-*.las")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, decoder); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("decompress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("close temp: %w", err)
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
