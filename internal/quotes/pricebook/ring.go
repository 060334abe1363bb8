package pricebook

// ring: 固定容量的 FIFO，满了覆盖最旧的一条。非并发安全，由 State 加锁保护
type ring struct {
	buf  []float64
	head int // 最旧元素下标
	n    int
}

func newRing(capacity int) ring {
	return ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *ring) len() int { return r.n }

// appendTo 按从旧到新的顺序拷贝到 dst
func (r *ring) appendTo(dst []float64) []float64 {
	first := r.buf[r.head:min(r.head+r.n, len(r.buf))]
	dst = append(dst, first...)
	if rest := r.n - len(first); rest > 0 {
		dst = append(dst, r.buf[:rest]...)
	}
	return dst
}
