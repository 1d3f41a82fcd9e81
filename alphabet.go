package chatdet

import (
	"bufio"
	"io"
)

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numeric = "0123456789"
	wsp     = " "
)

var (
	ASCIIAlpha = NewAlphabet(lower + upper + wsp)
	ASCIIAlnum = NewAlphabet(lower + upper + numeric)

	// ASCIIUpperAlnum is the folded form of ASCIIAlnum, for use with
	// case-insensitive models.
	ASCIIUpperAlnum = NewAlphabet(upper + numeric)
)

// Alphabet is an ordered set of single-byte symbols. Duplicates are dropped
// on construction; the first occurrence determines the position.
type Alphabet struct {
	set   [256]bool
	bytes []byte
}

func NewAlphabet(symbols string) Alphabet {
	al := Alphabet{bytes: make([]byte, 0, len(symbols))}
	for i := 0; i < len(symbols); i++ {
		al.add(symbols[i])
	}
	return al
}

// AlphabetFromReader builds an alphabet from every distinct byte in rdr.
func AlphabetFromReader(rdr io.Reader) (Alphabet, error) {
	buf := bufio.NewReader(rdr)

	a := NewAlphabet("")
	for {
		b, err := buf.ReadByte()
		if err == io.EOF {
			break
		} else if err != nil {
			return Alphabet{}, err
		}
		a.add(b)
	}

	return a, nil
}

func (al *Alphabet) Len() int { return len(al.bytes) }

func (al *Alphabet) Contains(b byte) bool { return al.set[b] }

// Bytes returns the symbols in insertion order. The result must not be modified.
func (al *Alphabet) Bytes() []byte { return al.bytes }

func (al Alphabet) String() string { return string(al.bytes) }

// Folded reports whether the alphabet contains no lower-case ASCII letters,
// which is required when a model ignores case.
func (al *Alphabet) Folded() bool {
	for _, b := range al.bytes {
		if b >= 'a' && b <= 'z' {
			return false
		}
	}
	return true
}

// Fold returns a copy of the alphabet with every symbol upper-cased.
func (al *Alphabet) Fold() Alphabet {
	out := Alphabet{bytes: make([]byte, 0, len(al.bytes))}
	for _, b := range al.bytes {
		out.add(foldByte(b))
	}
	return out
}

// Equal compares alphabets as sets.
func (al *Alphabet) Equal(other Alphabet) bool {
	return al.set == other.set
}

func (al *Alphabet) add(b byte) bool {
	if al.set[b] {
		return false
	}
	al.set[b] = true
	al.bytes = append(al.bytes, b)
	return true
}

func (al *Alphabet) MarshalBinary() (data []byte, err error) {
	out := make([]byte, len(al.bytes))
	copy(out, al.bytes)
	return out, nil
}

func (al *Alphabet) UnmarshalBinary(data []byte) (err error) {
	*al = NewAlphabet(string(data))
	return nil
}

func foldByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
