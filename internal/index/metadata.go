package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"spacebio-rag/internal/model"
)

var ErrMalformedMetadataLine = errors.New("malformed metadata line")

// WriteMetadata writes one JSON object per line in slice order.
func WriteMetadata(w io.Writer, records []model.ChunkRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("encode metadata record %d failed: %w", records[i].ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush metadata failed: %w", err)
	}
	return nil
}

// ReadMetadata decodes records in file order. Lines that fail to decode are
// reported to onSkip (wrapping ErrMalformedMetadataLine) and dropped.
func ReadMetadata(r io.Reader, onSkip func(line int, err error)) ([]*model.ChunkRecord, error) {
	br := bufio.NewReader(r)
	var records []*model.ChunkRecord
	for line := 1; ; line++ {
		raw, readErr := br.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("read metadata failed: %w", readErr)
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			var rec model.ChunkRecord
			if err := json.Unmarshal(trimmed, &rec); err != nil {
				if onSkip != nil {
					onSkip(line, fmt.Errorf("%w %d: %v", ErrMalformedMetadataLine, line, err))
				}
			} else {
				records = append(records, &rec)
			}
		}
		if readErr == io.EOF {
			return records, nil
		}
	}
}

func LoadMetadata(path string, onSkip func(line int, err error)) ([]*model.ChunkRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file failed: %w", err)
	}
	defer file.Close()
	return ReadMetadata(file, onSkip)
}
