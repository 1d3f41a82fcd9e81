package chatdet

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/shabbyrobe/chatdet/internal/fsutil"
)

// Model file layout, little-endian, no magic number:
//
//	id            u64 length + bytes
//	k             u64
//	smoothing     f32
//	ignore_case   u8
//	scaling       u8             (approximate only)
//	a, b          u32, u32       (approximate only)
//	alphabet      u64 count + bytes
//	contexts      u64 count, then per context:
//	                u64 length + context bytes
//	                u64 count + (event u8, count u32)*
//	                total u32
//
// The format carries no variant tag; readers must know whether the file was
// written by an approximate model.

// maxStringLen bounds length prefixes so a corrupt header cannot force a
// huge allocation.
const maxStringLen = 1 << 24

// WriteTo writes the model in the binary model format. Contexts and events
// are written in sorted order so the output is deterministic.
func (m *Model) WriteTo(w io.Writer) (n int64, err error) {
	enc := &encoder{w: bufio.NewWriter(w)}

	enc.bytes([]byte(m.id))
	enc.u64(uint64(m.order))
	enc.u32(math.Float32bits(m.smoothing))
	enc.bool(m.ignoreCase)

	if c, ok := m.Approximate(); ok {
		enc.u8(c.Scaling)
		enc.u32(c.A)
		enc.u32(c.B)
	}

	enc.bytes(m.alpha.Bytes())

	enc.u64(uint64(len(m.contexts)))
	for _, ctx := range m.Contexts() {
		e := m.contexts[ctx]
		enc.bytes([]byte(ctx))

		events := make([]byte, 0, len(e.Counts))
		for ev := range e.Counts {
			events = append(events, ev)
		}
		sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })

		enc.u64(uint64(len(events)))
		for _, ev := range events {
			enc.u8(ev)
			enc.u32(e.Counts[ev])
		}
		enc.u32(e.Total)
	}

	if enc.err == nil {
		enc.err = enc.w.Flush()
	}
	return enc.n, enc.err
}

func (m *Model) MarshalBinary() (data []byte, err error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an exact model. Use ReadModel for approximate
// models.
func (m *Model) UnmarshalBinary(data []byte) (err error) {
	rdr := bytes.NewReader(data)
	loaded, err := ReadModel(rdr, false)
	if err != nil {
		return err
	}
	if rdr.Len() > 0 {
		return &MalformedError{Source: "model", Offset: int64(len(data) - rdr.Len()), Reason: "trailing data"}
	}
	*m = *loaded
	return nil
}

// ReadModel decodes one model from rdr. approximate selects the header
// layout; opts are applied as for NewModel, after the stored configuration.
func ReadModel(rdr io.Reader, approximate bool, opts ...ModelOption) (*Model, error) {
	dec := &decoder{r: rdr}

	var cfg ModelConfig
	cfg.ID = string(dec.bytes("id"))
	order := dec.u64("order")
	cfg.Smoothing = math.Float32frombits(dec.u32("smoothing"))
	cfg.IgnoreCase = dec.bool("ignore case")

	if approximate {
		scaling := dec.u8("scaling factor")
		a := dec.u32("a")
		b := dec.u32("b")
		opts = append([]ModelOption{ModelApproximate(a, b, scaling)}, opts...)
	}

	alpha := dec.bytes("alphabet")
	if dec.err != nil {
		return nil, dec.err
	}
	if order > maxStringLen {
		return nil, dec.malformed("order out of range", nil)
	}
	cfg.Order = int(order)

	cfg.Alphabet = NewAlphabet(string(alpha))
	if cfg.Alphabet.Len() != len(alpha) {
		return nil, dec.malformed("duplicate alphabet symbol", nil)
	}

	m, err := NewModel(cfg, opts...)
	if err != nil {
		return nil, err
	}

	nctx := dec.u64("context count")
	for i := uint64(0); i < nctx && dec.err == nil; i++ {
		ctx := dec.bytes("context")
		nev := dec.u64("event count")
		if dec.err != nil {
			break
		}
		if len(ctx) != m.order {
			return nil, dec.malformed(fmt.Sprintf("context length %d, expected %d", len(ctx), m.order), nil)
		}
		if _, dup := m.contexts[string(ctx)]; dup {
			return nil, dec.malformed(fmt.Sprintf("duplicate context %q", ctx), nil)
		}
		if nev > 256 {
			return nil, dec.malformed("event count out of range", nil)
		}

		e := &Events{Counts: make(map[byte]uint32, nev)}
		for j := uint64(0); j < nev && dec.err == nil; j++ {
			ev := dec.u8("event")
			n := dec.u32("event count")
			if _, dup := e.Counts[ev]; dup && dec.err == nil {
				return nil, dec.malformed(fmt.Sprintf("duplicate event %q in context %q", ev, ctx), nil)
			}
			e.Counts[ev] = n
		}
		e.Total = dec.u32("total")
		m.contexts[string(ctx)] = e
	}
	if dec.err != nil {
		return nil, dec.err
	}

	return m, nil
}

// Save writes the model to path atomically.
func (m *Model) Save(path string) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("chatdet: save %s: %w", path, err)
	}
	return nil
}

// Load reads a model file written by Save.
func Load(path string, approximate bool, opts ...ModelOption) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chatdet: load: %w", err)
	}
	defer f.Close()

	buf := bufio.NewReader(f)
	m, err := ReadModel(buf, approximate, opts...)
	if err != nil {
		return nil, fmt.Errorf("chatdet: load %s: %w", path, err)
	}
	if _, err := buf.Peek(1); err == nil {
		return nil, fmt.Errorf("chatdet: load %s: %w", path,
			&MalformedError{Source: "model", Offset: -1, Reason: "trailing data"})
	} else if err != io.EOF {
		return nil, fmt.Errorf("chatdet: load %s: %w", path, err)
	}
	return m, nil
}

type encoder struct {
	w       *bufio.Writer
	scratch [8]byte
	n       int64
	err     error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	e.err = err
}

func (e *encoder) u8(v uint8) {
	e.scratch[0] = v
	e.write(e.scratch[:1])
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.scratch[:4], v)
	e.write(e.scratch[:4])
}

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.scratch[:8], v)
	e.write(e.scratch[:8])
}

func (e *encoder) bytes(v []byte) {
	e.u64(uint64(len(v)))
	e.write(v)
}

type decoder struct {
	r       io.Reader
	scratch [8]byte
	off     int64
	err     error
}

func (d *decoder) malformed(reason string, err error) error {
	return &MalformedError{Source: "model", Offset: d.off, Reason: reason, Err: err}
}

func (d *decoder) read(field string, p []byte) bool {
	if d.err != nil {
		return false
	}
	n, err := io.ReadFull(d.r, p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = d.malformed("reading "+field, err)
		return false
	}
	d.off += int64(n)
	return true
}

func (d *decoder) u8(field string) uint8 {
	if !d.read(field, d.scratch[:1]) {
		return 0
	}
	return d.scratch[0]
}

func (d *decoder) bool(field string) bool {
	return d.u8(field) != 0
}

func (d *decoder) u32(field string) uint32 {
	if !d.read(field, d.scratch[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(d.scratch[:4])
}

func (d *decoder) u64(field string) uint64 {
	if !d.read(field, d.scratch[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(d.scratch[:8])
}

func (d *decoder) bytes(field string) []byte {
	n := d.u64(field + " length")
	if d.err != nil {
		return nil
	}
	if n > maxStringLen {
		d.err = d.malformed(fmt.Sprintf("%s length %d out of range", field, n), nil)
		return nil
	}
	out := make([]byte, n)
	if !d.read(field, out) {
		return nil
	}
	return out
}
