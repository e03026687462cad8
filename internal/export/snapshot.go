// Package export writes resident terrain to disk: compressed mesh snapshots
// and top-down PNG previews.
package export

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"meshmap/internal/streaming"
	"meshmap/internal/world"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Version is the snapshot format written by WriteSnapshot.
const Version = 1

// ErrUnsupportedVersion is returned when a snapshot header names a format
// this build cannot read.
var ErrUnsupportedVersion = errors.New("export: unsupported snapshot version")

// Header is stored as a JSON line ahead of the gob body so tools can
// identify a snapshot without decoding the meshes.
type Header struct {
	Version    int       `json:"version"`
	ID         string    `json:"id"`
	Seed       int64     `json:"seed"`
	ChunkWidth int       `json:"chunk_width"`
	Chunks     int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

type SnapshotV1 struct {
	Header Header

	Terrain world.HeightFieldConfig
	Chunks  []ChunkV1
}

type ChunkV1 struct {
	CX          int
	CZ          int
	VertexCount int
	Vertices    []float32
}

// Capture copies every ready chunk of c into a snapshot, sorted by X then Z.
func Capture(c *streaming.Controller) SnapshotV1 {
	var chunks []ChunkV1
	c.EachReady(func(rec streaming.ChunkRecord) {
		chunks = append(chunks, ChunkV1{
			CX:          rec.Coord.X,
			CZ:          rec.Coord.Z,
			VertexCount: rec.VertexCount,
			Vertices:    append([]float32(nil), rec.Vertices...),
		})
	})
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].CX != chunks[j].CX {
			return chunks[i].CX < chunks[j].CX
		}
		return chunks[i].CZ < chunks[j].CZ
	})

	hf := c.HeightField()
	return SnapshotV1{
		Header: Header{
			Version:    Version,
			ID:         uuid.NewString(),
			Seed:       hf.Seed,
			ChunkWidth: c.ChunkWidth(),
			Chunks:     len(chunks),
			CreatedAt:  time.Now().UTC(),
		},
		Terrain: hf,
		Chunks:  chunks,
	}
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := readHeader(br); err != nil {
		return snap, err
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line of a snapshot.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()

	return readHeader(bufio.NewReader(dec))
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}
