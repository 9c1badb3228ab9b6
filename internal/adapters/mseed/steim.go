package mseed

import (
	"encoding/binary"
	"fmt"
)

const frameLength = 64

// decodeSteim1 expands Steim1 compressed frames into count samples.
func decodeSteim1(data []byte, count int) ([]int32, error) {
	diffs := make([]int32, 0, count)
	var x0, xn int32

	for f := 0; f+frameLength <= len(data) && len(diffs) < count; f += frameLength {
		frame := data[f : f+frameLength]
		ctrl := binary.BigEndian.Uint32(frame[0:4])
		for w := 1; w < 16; w++ {
			word := frame[4*w : 4*w+4]
			if f == 0 && w == 1 {
				x0 = int32(binary.BigEndian.Uint32(word))
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(binary.BigEndian.Uint32(word))
				continue
			}
			switch nibble(ctrl, w) {
			case 0:
				// idle word
			case 1:
				for i := 0; i < 4; i++ {
					diffs = append(diffs, int32(int8(word[i])))
				}
			case 2:
				for i := 0; i < 2; i++ {
					diffs = append(diffs, int32(int16(binary.BigEndian.Uint16(word[2*i:]))))
				}
			case 3:
				diffs = append(diffs, int32(binary.BigEndian.Uint32(word)))
			}
		}
	}

	return integrate(diffs, x0, xn, count)
}

// decodeSteim2 expands Steim2 compressed frames into count samples.
func decodeSteim2(data []byte, count int) ([]int32, error) {
	diffs := make([]int32, 0, count)
	var x0, xn int32

	for f := 0; f+frameLength <= len(data) && len(diffs) < count; f += frameLength {
		frame := data[f : f+frameLength]
		ctrl := binary.BigEndian.Uint32(frame[0:4])
		for w := 1; w < 16; w++ {
			word := binary.BigEndian.Uint32(frame[4*w : 4*w+4])
			if f == 0 && w == 1 {
				x0 = int32(word)
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(word)
				continue
			}
			switch nibble(ctrl, w) {
			case 0:
				// idle word
			case 1:
				for i := 0; i < 4; i++ {
					diffs = append(diffs, int32(int8(word>>uint(24-8*i))))
				}
			case 2:
				switch word >> 30 {
				case 1:
					diffs = append(diffs, int32(word<<2)>>2)
				case 2:
					for i := 0; i < 2; i++ {
						diffs = append(diffs, int32(word<<uint(2+15*i))>>17)
					}
				case 3:
					for i := 0; i < 3; i++ {
						diffs = append(diffs, int32(word<<uint(2+10*i))>>22)
					}
				default:
					return nil, fmt.Errorf("%w: invalid dnib", ErrBadSteim)
				}
			case 3:
				switch word >> 30 {
				case 0:
					for i := 0; i < 5; i++ {
						diffs = append(diffs, int32(word<<uint(2+6*i))>>26)
					}
				case 1:
					for i := 0; i < 6; i++ {
						diffs = append(diffs, int32(word<<uint(2+5*i))>>27)
					}
				case 2:
					for i := 0; i < 7; i++ {
						diffs = append(diffs, int32(word<<uint(4+4*i))>>28)
					}
				default:
					return nil, fmt.Errorf("%w: invalid dnib", ErrBadSteim)
				}
			}
		}
	}

	return integrate(diffs, x0, xn, count)
}

func nibble(ctrl uint32, w int) uint32 {
	return (ctrl >> uint(30-2*w)) & 0x3
}

// integrate reconstructs samples from first differences. The first
// difference spans into the previous record and is discarded in favour
// of the forward integration constant. The reverse constant is checked
// as a data integrity guard.
func integrate(diffs []int32, x0, xn int32, count int) ([]int32, error) {
	if len(diffs) < count {
		return nil, fmt.Errorf("%w: %d of %d samples", ErrBadSteim, len(diffs), count)
	}
	out := make([]int32, count)
	if count == 0 {
		return out, nil
	}
	out[0] = x0
	for i := 1; i < count; i++ {
		out[i] = out[i-1] + diffs[i]
	}
	if out[count-1] != xn {
		return nil, fmt.Errorf("%w: reverse integration mismatch", ErrBadSteim)
	}
	return out, nil
}

// encodeSteim1 packs as many samples as fit into one block's worth of
// Steim1 frames. prev is the final sample of the preceding block, used
// for the leading difference. It returns the number of samples consumed.
func encodeSteim1(frames []byte, samples []int32, prev int32) int {
	for i := range frames {
		frames[i] = 0
	}

	nframes := len(frames) / frameLength
	consumed := 0
	last := prev

	// chunk widths per control nibble: 1 → four bytes, 2 → two shorts,
	// 3 → one long
	type chunk struct {
		nib   uint32
		diffs []int32
	}

	take := func() (chunk, bool) {
		rest := samples[consumed:]
		if len(rest) == 0 {
			return chunk{}, false
		}
		diffs := make([]int32, 0, 4)
		p := last
		for i := 0; i < len(rest) && i < 4; i++ {
			diffs = append(diffs, rest[i]-p)
			p = rest[i]
		}
		fits := func(n int, limit int32) bool {
			if len(diffs) < n {
				return false
			}
			for _, d := range diffs[:n] {
				if d < -limit || d >= limit {
					return false
				}
			}
			return true
		}
		switch {
		case fits(4, 1<<7):
			return chunk{nib: 1, diffs: diffs[:4]}, true
		case fits(2, 1<<15):
			return chunk{nib: 2, diffs: diffs[:2]}, true
		default:
			return chunk{nib: 3, diffs: diffs[:1]}, true
		}
	}

	for f := 0; f < nframes; f++ {
		frame := frames[f*frameLength : (f+1)*frameLength]
		var ctrl uint32
		w := 1
		if f == 0 {
			w = 3 // words 1 and 2 hold the integration constants
		}
		for ; w < 16; w++ {
			c, ok := take()
			if !ok {
				break
			}
			ctrl |= c.nib << uint(30-2*w)
			word := frame[4*w : 4*w+4]
			switch c.nib {
			case 1:
				for i, d := range c.diffs {
					word[i] = byte(d)
				}
			case 2:
				for i, d := range c.diffs {
					binary.BigEndian.PutUint16(word[2*i:], uint16(d))
				}
			case 3:
				binary.BigEndian.PutUint32(word, uint32(c.diffs[0]))
			}
			for _, d := range c.diffs {
				last += d
				consumed++
			}
		}
		binary.BigEndian.PutUint32(frame[0:4], ctrl)
		if consumed == len(samples) {
			break
		}
	}

	if consumed > 0 {
		binary.BigEndian.PutUint32(frames[4:8], uint32(samples[0]))
		binary.BigEndian.PutUint32(frames[8:12], uint32(samples[consumed-1]))
	}
	return consumed
}

// encodeSteim2 packs as many samples as fit into one block's worth of
// Steim2 frames. prev is the final sample of the preceding block, used
// for the leading difference. It returns the number of samples consumed;
// a leading difference wider than 30 bits cannot be represented and
// stops the fill.
func encodeSteim2(frames []byte, samples []int32, prev int32) int {
	for i := range frames {
		frames[i] = 0
	}

	nframes := len(frames) / frameLength
	consumed := 0
	last := prev

	type chunk struct {
		nib   uint32
		word  uint32
		count int
	}

	fits := func(diffs []int32, n int, bits uint) bool {
		if len(diffs) < n {
			return false
		}
		limit := int32(1) << (bits - 1)
		for _, d := range diffs[:n] {
			if d < -limit || d >= limit {
				return false
			}
		}
		return true
	}

	take := func() (chunk, bool) {
		rest := samples[consumed:]
		if len(rest) == 0 {
			return chunk{}, false
		}
		diffs := make([]int32, 0, 7)
		p := last
		for i := 0; i < len(rest) && i < 7; i++ {
			diffs = append(diffs, rest[i]-p)
			p = rest[i]
		}
		switch {
		case fits(diffs, 7, 4):
			word := uint32(2) << 30
			for i, d := range diffs[:7] {
				word |= (uint32(d) & 0xF) << uint(24-4*i)
			}
			return chunk{nib: 3, word: word, count: 7}, true
		case fits(diffs, 6, 5):
			word := uint32(1) << 30
			for i, d := range diffs[:6] {
				word |= (uint32(d) & 0x1F) << uint(25-5*i)
			}
			return chunk{nib: 3, word: word, count: 6}, true
		case fits(diffs, 5, 6):
			var word uint32
			for i, d := range diffs[:5] {
				word |= (uint32(d) & 0x3F) << uint(24-6*i)
			}
			return chunk{nib: 3, word: word, count: 5}, true
		case fits(diffs, 4, 8):
			var word uint32
			for i, d := range diffs[:4] {
				word |= (uint32(d) & 0xFF) << uint(24-8*i)
			}
			return chunk{nib: 1, word: word, count: 4}, true
		case fits(diffs, 3, 10):
			word := uint32(3) << 30
			for i, d := range diffs[:3] {
				word |= (uint32(d) & 0x3FF) << uint(20-10*i)
			}
			return chunk{nib: 2, word: word, count: 3}, true
		case fits(diffs, 2, 15):
			word := uint32(2) << 30
			for i, d := range diffs[:2] {
				word |= (uint32(d) & 0x7FFF) << uint(15-15*i)
			}
			return chunk{nib: 2, word: word, count: 2}, true
		case fits(diffs, 1, 30):
			word := uint32(1)<<30 | (uint32(diffs[0]) & 0x3FFFFFFF)
			return chunk{nib: 2, word: word, count: 1}, true
		}
		return chunk{}, false
	}

	for f := 0; f < nframes; f++ {
		frame := frames[f*frameLength : (f+1)*frameLength]
		var ctrl uint32
		w := 1
		if f == 0 {
			w = 3 // words 1 and 2 hold the integration constants
		}
		for ; w < 16; w++ {
			c, ok := take()
			if !ok {
				break
			}
			ctrl |= c.nib << uint(30-2*w)
			binary.BigEndian.PutUint32(frame[4*w:4*w+4], c.word)
			last = samples[consumed+c.count-1]
			consumed += c.count
		}
		binary.BigEndian.PutUint32(frame[0:4], ctrl)
		if consumed == len(samples) {
			break
		}
	}

	if consumed > 0 {
		binary.BigEndian.PutUint32(frames[4:8], uint32(samples[0]))
		binary.BigEndian.PutUint32(frames[8:12], uint32(samples[consumed-1]))
	}
	return consumed
}
