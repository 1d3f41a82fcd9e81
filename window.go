package chatdet

// Window holds the last k accepted symbols, oldest first. Pushing into a full
// window evicts the oldest symbol.
//
// Window is not safe for concurrent use; each stream owns its own window.
type Window struct {
	buf  []byte
	head int // next write position
	size int
}

func NewWindow(k int) (*Window, error) {
	if k < 1 {
		return nil, &ConfigError{Field: "order", Reason: "must be at least 1"}
	}
	return &Window{buf: make([]byte, k)}, nil
}

func (w *Window) Push(b byte) {
	w.buf[w.head] = b
	w.head = (w.head + 1) % len(w.buf)
	if w.size < len(w.buf) {
		w.size++
	}
}

func (w *Window) Len() int { return w.size }
func (w *Window) Cap() int { return len(w.buf) }
func (w *Window) Full() bool { return w.size == len(w.buf) }

func (w *Window) Reset() {
	w.head = 0
	w.size = 0
}

// AppendTo appends the window content, oldest first, to dst.
func (w *Window) AppendTo(dst []byte) []byte {
	start := w.head - w.size
	if start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < w.size; i++ {
		dst = append(dst, w.buf[(start+i)%len(w.buf)])
	}
	return dst
}

// Snapshot returns a copy of the window content, oldest first.
func (w *Window) Snapshot() []byte {
	return w.AppendTo(make([]byte, 0, w.size))
}

func (w *Window) String() string {
	return string(w.Snapshot())
}
