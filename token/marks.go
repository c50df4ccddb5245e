package token

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// markSeparator splits the marks block from the body and marks from each other.
	markSeparator = '|'
	// maxGroupSize caps how many IV slots are spliced in at one point.
	maxGroupSize = 6
	// maxChunkSize keeps a chunk length within two decimal digits.
	maxChunkSize = 99
)

// mark records one splice point: which IV slots follow a data chunk of the
// given length. It is written as the slot digits followed by the length
// zero-padded to two digits, e.g. "37205" is slots 3,7,2 after 5 characters.
type mark struct {
	slots  []int
	length int
}

func (m mark) String() string {
	var sb strings.Builder
	sb.Grow(len(m.slots) + 2)
	for _, s := range m.slots {
		sb.WriteByte(byte('0' + s))
	}
	if m.length < 10 {
		sb.WriteByte('0')
	}
	sb.WriteString(strconv.Itoa(m.length))
	return sb.String()
}

func parseMark(s string) (mark, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return mark{}, fmt.Errorf("%w: mark %q is not numeric", ErrUnpackFailed, s)
		}
	}
	n := len(s)
	m := mark{
		slots:  make([]int, n-2),
		length: int(s[n-2]-'0')*10 + int(s[n-1]-'0'),
	}
	for i := 0; i < n-2; i++ {
		m.slots[i] = int(s[i] - '0')
	}
	return m, nil
}

// parseMarks splits the decrypted marks string. Fragments shorter than three
// characters are malformed and skipped.
func parseMarks(s string) ([]mark, error) {
	parts := strings.Split(s, string(markSeparator))
	marks := make([]mark, 0, len(parts))
	for _, p := range parts {
		if len(p) < 3 {
			continue
		}
		m, err := parseMark(p)
		if err != nil {
			return nil, err
		}
		marks = append(marks, m)
	}
	return marks, nil
}

// interleaving is the ordered list of marks describing a token body.
type interleaving []mark

func (il interleaving) String() string {
	parts := make([]string, len(il))
	for i, m := range il {
		parts[i] = m.String()
	}
	return strings.Join(parts, string(markSeparator))
}

// split walks body following the marks and returns the data ciphertext and
// the IV. Characters left after the last mark belong to the ciphertext.
func (il interleaving) split(body string) (string, string, error) {
	var (
		data   strings.Builder
		slots  [IVSize]byte
		seen   [IVSize]bool
		found  int
		offset int
	)
	data.Grow(len(body))
	for _, m := range il {
		end := offset + m.length + len(m.slots)
		if end > len(body) {
			return "", "", fmt.Errorf("%w: mark overruns body", ErrUnpackFailed)
		}
		data.WriteString(body[offset : offset+m.length])
		for i, slot := range m.slots {
			if slot >= IVSize || seen[slot] {
				return "", "", fmt.Errorf("%w: bad iv slot %d", ErrUnpackFailed, slot)
			}
			seen[slot] = true
			slots[slot] = body[offset+m.length+i]
			found++
		}
		offset = end
	}
	if offset < len(body) {
		data.WriteString(body[offset:])
	}
	if found != IVSize || data.Len() == 0 {
		return "", "", fmt.Errorf("%w: recovered %d iv slots and %d data characters", ErrUnpackFailed, found, data.Len())
	}
	return data.String(), string(slots[:]), nil
}

// plan draws a random interleaving for data of the given length: a shuffled
// IV slot order cut into groups of 1 to 6 slots, each group preceded by a
// chunk whose length is bounded by the square root of what is left.
func (c *Codec) plan(dataLen int) (interleaving, error) {
	order, err := c.random.Perm(IVSize)
	if err != nil {
		return nil, err
	}
	var il interleaving
	remaining := dataLen
	for len(order) > 0 {
		size, err := c.random.IntRange(1, min(maxGroupSize, len(order)))
		if err != nil {
			return nil, err
		}
		limit := max(1, min(maxChunkSize, int(math.Sqrt(float64(remaining)))))
		cut, err := c.random.IntRange(1, limit)
		if err != nil {
			return nil, err
		}
		// Once the data is exhausted the mark must still describe what was written.
		cut = min(cut, remaining)
		remaining -= cut
		il = append(il, mark{slots: order[:size], length: cut})
		order = order[size:]
	}
	return il, nil
}

// pack interleaves iv into data and prepends the encrypted marks block:
// <marksIV><encrypted marks>|<body>.
func (c *Codec) pack(iv, data string) (string, error) {
	if len(iv) != IVSize {
		return "", ErrInvalidIV
	}
	il, err := c.plan(len(data))
	if err != nil {
		return "", err
	}

	var body strings.Builder
	body.Grow(len(data) + IVSize)
	offset := 0
	for _, m := range il {
		body.WriteString(data[offset : offset+m.length])
		offset += m.length
		for _, slot := range m.slots {
			body.WriteByte(iv[slot])
		}
	}
	body.WriteString(data[offset:])

	marksIV, err := c.random.String(IVSize)
	if err != nil {
		return "", err
	}
	marks, err := encryptCBC(c.marksKey, marksIV, []byte(il.String()))
	if err != nil {
		return "", err
	}
	return marksIV + marks + string(markSeparator) + body.String(), nil
}
