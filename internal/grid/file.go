package grid

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// ErrBadFormat is returned when a stream is not a grid file.
var ErrBadFormat = errors.New("not a grid file")

const (
	fileVersion = 1
	maxCells    = 1 << 28
)

var (
	fileMagic = []byte("TTGRID")
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Header describes where a persisted grid came from.
type Header struct {
	Departure string    `json:"departure"`
	RunID     uuid.UUID `json:"runId"`
	Created   time.Time `json:"created"`
}

// fixedHeader is the fixed-width part that follows the magic and departure code.
type fixedHeader struct {
	RunID    [16]byte
	Created  int64
	LonStart float64
	LonStep  float64
	LonCount uint32
	LatStart float64
	LatStep  float64
	LatCount uint32
}

// Write serialises g as little-endian binary. Cell values are written as raw
// float64 bits so a Read restores them exactly, Unknown included.
func Write(w io.Writer, g *Grid, h Header) error {
	if len(h.Departure) > math.MaxUint16 {
		return fmt.Errorf("departure code too long: %d bytes", len(h.Departure))
	}

	bw := bufio.NewWriter(w)

	fh := fixedHeader{
		RunID:    h.RunID,
		LonStart: g.Lon.Start,
		LonStep:  g.Lon.Step,
		LonCount: uint32(g.Lon.Count),
		LatStart: g.Lat.Start,
		LatStep:  g.Lat.Step,
		LatCount: uint32(g.Lat.Count),
	}
	if !h.Created.IsZero() {
		fh.Created = h.Created.UnixNano()
	}

	if _, err := bw.Write(fileMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(fileVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(h.Departure))); err != nil {
		return err
	}
	if _, err := bw.WriteString(h.Departure); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, fh); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, g.Values); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteCompressed is Write wrapped in a zstd stream.
func WriteCompressed(w io.Writer, g *Grid, h Header) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd init: %w", err)
	}
	if err := Write(enc, g, h); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Read restores a grid written by Write or WriteCompressed.
func Read(r io.Reader) (*Grid, Header, error) {
	br := bufio.NewReader(r)

	// Check for zstd magic bytes: 0x28 0xB5 0x2F 0xFD
	if magic, err := br.Peek(len(zstdMagic)); err == nil && bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, Header{}, fmt.Errorf("zstd init: %w", err)
		}
		defer zr.Close()
		return read(bufio.NewReader(zr))
	}
	return read(br)
}

func read(r io.Reader) (*Grid, Header, error) {
	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil || !bytes.Equal(magic, fileMagic) {
		return nil, Header{}, ErrBadFormat
	}

	var version, depLen uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if version != fileVersion {
		return nil, Header{}, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, version)
	}
	if err := binary.Read(r, binary.LittleEndian, &depLen); err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	dep := make([]byte, depLen)
	if _, err := io.ReadFull(r, dep); err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	var fh fixedHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}

	cells := uint64(fh.LonCount) * uint64(fh.LatCount)
	if cells > maxCells {
		return nil, Header{}, fmt.Errorf("%w: %d cells", ErrBadFormat, cells)
	}

	g := &Grid{
		Lon:    Axis{Start: fh.LonStart, Step: fh.LonStep, Count: int(fh.LonCount)},
		Lat:    Axis{Start: fh.LatStart, Step: fh.LatStep, Count: int(fh.LatCount)},
		Values: make([]float64, cells),
	}
	if err := binary.Read(r, binary.LittleEndian, g.Values); err != nil {
		return nil, Header{}, fmt.Errorf("%w: truncated values: %v", ErrBadFormat, err)
	}

	h := Header{Departure: string(dep), RunID: uuid.UUID(fh.RunID)}
	if fh.Created != 0 {
		h.Created = time.Unix(0, fh.Created).UTC()
	}
	return g, h, nil
}
