package debugui

// History is a fixed-size ring of samples for ImGui plots.
type History struct {
	samples []float32
	next    int
	full    bool
}

func NewHistory(size int) *History {
	return &History{samples: make([]float32, max(size, 1))}
}

func (h *History) Push(v float32) {
	h.samples[h.next] = v
	h.next = (h.next + 1) % len(h.samples)
	if h.next == 0 {
		h.full = true
	}
}

// Len is the number of samples pushed so far, capped at the ring size.
func (h *History) Len() int {
	if h.full {
		return len(h.samples)
	}
	return h.next
}

// Ordered copies the samples oldest first into dst, reusing its storage.
func (h *History) Ordered(dst []float32) []float32 {
	dst = dst[:0]
	if h.full {
		dst = append(dst, h.samples[h.next:]...)
	}
	return append(dst, h.samples[:h.next]...)
}

func (h *History) Mean() float32 {
	n := h.Len()
	if n == 0 {
		return 0
	}
	var sum float32
	for _, v := range h.samples[:n] {
		sum += v
	}
	return sum / float32(n)
}

func (h *History) Max() float32 {
	var m float32
	for _, v := range h.samples[:h.Len()] {
		m = max(m, v)
	}
	return m
}
