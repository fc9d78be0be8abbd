package raster

import (
	"bytes"
	"encoding/binary"
	"io"
	"maps"
	"slices"

	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
)

// Binary layout: a 4-byte magic, uvarint dimensions, then cells run-length
// encoded as uvarint lengths alternating off/on, starting with off. Stacks
// prepend a plane count and concatenate the per-plane cell sections; plane
// collections carry slice numbers and length-prefixed bitmap payloads.
var (
	bitmapMagic = []byte("MKB1")
	stackMagic  = []byte("MKS1")
	planesMagic = []byte("MKP1")
)

const (
	maxCells  = 1 << 28
	maxPlanes = 1 << 16
)

// MarshalBinary encodes the bitmap in the run-length format used by the
// cache. It implements [encoding.BinaryMarshaler].
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 16+len(b.cells)/64)
	buf = append(buf, bitmapMagic...)
	buf = binary.AppendUvarint(buf, uint64(b.width))
	buf = binary.AppendUvarint(buf, uint64(b.height))
	buf = appendRLE(buf, b.cells)
	return buf, nil
}

// UnmarshalBinary decodes data produced by [Bitmap.MarshalBinary], replacing
// the receiver's dimensions and cells.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if err := expectMagic(r, bitmapMagic); err != nil {
		return err
	}
	w, h, err := readDims(r)
	if err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "bitmap dimensions %dx%d must be positive", w, h)
	}
	cells, err := readRLE(r, w*h)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "bitmap payload has %d trailing bytes", r.Len())
	}
	b.width, b.height, b.cells = w, h, cells
	return nil
}

// MarshalBinary encodes the stack in the run-length format used by the
// cache. It implements [encoding.BinaryMarshaler].
func (s *Stack) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 32)
	buf = append(buf, stackMagic...)
	buf = binary.AppendUvarint(buf, uint64(s.width))
	buf = binary.AppendUvarint(buf, uint64(s.height))
	buf = binary.AppendUvarint(buf, uint64(len(s.planes)))
	for _, p := range s.planes {
		buf = appendRLE(buf, p.cells)
	}
	return buf, nil
}

// UnmarshalBinary decodes data produced by [Stack.MarshalBinary], replacing
// the receiver's planes.
func (s *Stack) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	if err := expectMagic(r, stackMagic); err != nil {
		return err
	}
	w, h, err := readDims(r)
	if err != nil {
		return err
	}
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "stack plane count truncated")
	}
	if count > maxPlanes {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "stack declares %d planes, limit %d", count, maxPlanes)
	}
	if count > 0 && (w <= 0 || h <= 0) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "stack dimensions %dx%d must be positive", w, h)
	}

	planes := make([]*Bitmap, 0, count)
	for i := uint64(0); i < count; i++ {
		cells, err := readRLE(r, w*h)
		if err != nil {
			return err
		}
		planes = append(planes, &Bitmap{width: w, height: h, cells: cells})
	}
	if r.Len() != 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "stack payload has %d trailing bytes", r.Len())
	}

	if count == 0 {
		w, h = 0, 0
	}
	s.width, s.height, s.planes = w, h, planes
	return nil
}

// EncodePlanes marshals a slice-number → bitmap collection, the unit the
// pipeline caches per document. Planes are written in ascending slice-number
// order, so equal collections produce identical bytes.
func EncodePlanes(planes map[int]*Bitmap) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, planesMagic...)
	buf = binary.AppendUvarint(buf, uint64(len(planes)))
	for _, n := range slices.Sorted(maps.Keys(planes)) {
		payload, err := planes[n].MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = binary.AppendVarint(buf, int64(n))
		buf = binary.AppendUvarint(buf, uint64(len(payload)))
		buf = append(buf, payload...)
	}
	return buf, nil
}

// DecodePlanes decodes data produced by [EncodePlanes].
func DecodePlanes(data []byte) (map[int]*Bitmap, error) {
	r := bytes.NewReader(data)
	if err := expectMagic(r, planesMagic); err != nil {
		return nil, err
	}
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "plane count truncated")
	}
	if count > maxPlanes {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "collection declares %d planes, limit %d", count, maxPlanes)
	}

	planes := make(map[int]*Bitmap, count)
	for i := uint64(0); i < count; i++ {
		n, err := binary.ReadVarint(r)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "slice number truncated")
		}
		plen, err := binary.ReadUvarint(r)
		if err != nil || plen > uint64(r.Len()) {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "plane payload length invalid")
		}
		payload := make([]byte, plen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "plane payload truncated")
		}
		var bm Bitmap
		if err := bm.UnmarshalBinary(payload); err != nil {
			return nil, err
		}
		planes[int(n)] = &bm
	}
	if r.Len() != 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "plane collection has %d trailing bytes", r.Len())
	}
	return planes, nil
}

func expectMagic(r *bytes.Reader, magic []byte) error {
	got := make([]byte, len(magic))
	if _, err := io.ReadFull(r, got); err != nil || !bytes.Equal(got, magic) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "payload does not start with %q", magic)
	}
	return nil
}

func readDims(r *bytes.Reader) (int, int, error) {
	w, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "width truncated")
	}
	h, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "height truncated")
	}
	if w > maxCells || h > maxCells || w*h > maxCells {
		return 0, 0, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "grid of %dx%d cells exceeds limit", w, h)
	}
	return int(w), int(h), nil
}

func appendRLE(dst []byte, cells []bool) []byte {
	cur := false
	run := uint64(0)
	for _, c := range cells {
		if c == cur {
			run++
			continue
		}
		dst = binary.AppendUvarint(dst, run)
		cur = c
		run = 1
	}
	return binary.AppendUvarint(dst, run)
}

func readRLE(r *bytes.Reader, total int) ([]bool, error) {
	cells := make([]bool, total)
	pos := 0
	on := false
	for pos < total {
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "run-length data truncated")
		}
		if n > uint64(total-pos) {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "run of %d cells overflows %d-cell grid", n, total)
		}
		if on {
			for i := pos; i < pos+int(n); i++ {
				cells[i] = true
			}
		}
		pos += int(n)
		on = !on
	}
	return cells, nil
}
