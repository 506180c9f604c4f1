package index

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// snapshot is the persisted form of an Index.
type snapshot struct {
	Fingerprint string
	Books       int
	Index       *Index
}

func encode(s snapshot) ([]byte, error) {
	var buf bytes.Buffer

	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	if err := gob.NewEncoder(zw).Encode(s); err != nil {
		zw.Close()
		return nil, fmt.Errorf("encode index: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress index: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (snapshot, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return snapshot{}, err
	}
	defer zr.Close()

	var s snapshot
	if err := gob.NewDecoder(zr).Decode(&s); err != nil {
		return snapshot{}, fmt.Errorf("decode index: %w", err)
	}
	return s, nil
}
