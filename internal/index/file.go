package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	fileMagic   = "SBIX"
	fileVersion = 1
)

var ErrBadIndexFile = errors.New("bad index file")

// WriteTo encodes the index as: magic, version, dim, count, then count*dim
// little-endian float32 values.
func (f *FlatIndex) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	header := make([]byte, 16)
	copy(header, fileMagic)
	binary.LittleEndian.PutUint32(header[4:], fileVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(f.dim))
	binary.LittleEndian.PutUint32(header[12:], uint32(f.Len()))
	if _, err := bw.Write(header); err != nil {
		return 0, fmt.Errorf("write index header failed: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, f.data); err != nil {
		return 0, fmt.Errorf("write index vectors failed: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush index failed: %w", err)
	}
	return int64(len(header) + 4*len(f.data)), nil
}

// ReadFlatIndex decodes an index written by WriteTo.
func ReadFlatIndex(r io.Reader) (*FlatIndex, error) {
	return readFlatIndex(r, -1)
}

// readFlatIndex checks the header against size before allocating the vector
// block. A negative size skips the check.
func readFlatIndex(r io.Reader, size int64) (*FlatIndex, error) {
	br := bufio.NewReader(r)
	header := make([]byte, 16)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrBadIndexFile, err)
	}
	if string(header[:4]) != fileMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadIndexFile, header[:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadIndexFile, v)
	}
	dim := int(binary.LittleEndian.Uint32(header[8:]))
	count := int(binary.LittleEndian.Uint32(header[12:]))
	if dim == 0 && count > 0 {
		return nil, fmt.Errorf("%w: zero dimension", ErrBadIndexFile)
	}
	if size >= 0 {
		body := size - 16
		if body < 0 || body%4 != 0 || uint64(body/4) != uint64(dim)*uint64(count) {
			return nil, fmt.Errorf("%w: header claims %d vectors of dimension %d, file has %d bytes",
				ErrBadIndexFile, count, dim, size)
		}
	}

	data := make([]float32, dim*count)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("%w: read vectors: %v", ErrBadIndexFile, err)
	}
	return &FlatIndex{dim: dim, data: data}, nil
}

func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file failed: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file failed: %w", err)
	}
	return readFlatIndex(file, info.Size())
}
