// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package compactstate

import "fmt"

// Handle identifies a previously inserted state: either a byte offset
// into the store's append-only buffer, or a dense slot index into an
// internal offset table, depending on how the Store was constructed
// (spec.md §4.7: "handle is either an appended byte-offset or a dense
// index into a map[] array, per constructor option").
type Handle int64

// segment is one run-length-encoded group: a RUN of `length` copies of
// values[0], or a LIST of `length` literal, individually distinct-from-
// neighbour values (spec.md §3's "alternating LIST/RUN markers").
type segment struct {
	isRun  bool
	length int
	values []int32
}

// segmentize partitions state into maximal equal-value runs (any run
// of length >= 2 becomes a RUN segment) with adjacent singleton runs
// folded into one LIST segment, matching the worked example of
// spec.md §8 scenario 6 ((1,1,1,1,1,1,1,1,0) -> one RUN of eight 1s,
// one LIST of a single 0).
func segmentize(state []int32) []segment {
	n := len(state)
	var segs []segment
	i := 0
	for i < n {
		j := i
		for j+1 < n && state[j+1] == state[i] {
			j++
		}
		runLen := j - i + 1
		if runLen >= 2 {
			segs = append(segs, segment{isRun: true, length: runLen, values: []int32{state[i]}})
			i = j + 1
			continue
		}
		start := i
		k := i
		for k < n {
			if k+1 < n && state[k+1] == state[k] {
				break
			}
			k++
		}
		vals := append([]int32(nil), state[start:k]...)
		segs = append(segs, segment{isRun: false, length: len(vals), values: vals})
		i = k
	}
	return segs
}

// Stats reports how many live records were written under each
// encoding (spec.md §4.7 "per-encoding counters").
type Stats struct {
	Sparse, Runlength, Full int
}

// Store holds one contiguous, append-only byte buffer of compactly
// encoded state records, all drawn from the same numVars-wide
// variable order (spec.md §4.7). In "indexed" mode, Insert hands back
// a dense [0,n) index backed by an internal offset table instead of a
// raw byte offset, for callers that need O(1) handle -> position
// lookup without retaining the byte-offset handle themselves (the
// `map[i] -> handle` side-table spec.md §3 describes).
type Store struct {
	numVars int
	indexed bool

	buf    []byte
	offset []int64 // indexed mode only: dense index -> byte offset

	stats Stats
}

// New creates a Store over state vectors of length numVars. When
// indexed is true, Insert returns a dense index and Get accepts one;
// when false, Insert returns the raw byte offset of the record.
func New(numVars int, indexed bool) (*Store, error) {
	if numVars <= 0 {
		return nil, fmt.Errorf("compactstate: numVars must be positive")
	}
	return &Store{numVars: numVars, indexed: indexed}, nil
}

// NumVars returns the fixed width every inserted state must have.
func (s *Store) NumVars() int { return s.numVars }

// Indexed reports whether handles are dense indices (true) or raw
// byte offsets (false).
func (s *Store) Indexed() bool { return s.indexed }

// Stats returns a snapshot of the per-encoding counters.
func (s *Store) Stats() Stats { return s.stats }

// Clear resets the write cursor; every previously returned Handle
// becomes invalid (spec.md §4.7).
func (s *Store) Clear() {
	s.buf = s.buf[:0]
	s.offset = s.offset[:0]
	s.stats = Stats{}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// plan picks the encoding and bucket widths that minimise the encoded
// bit count for state, breaking ties full > sparse > runlength for
// deterministic behaviour (spec.md §4.7).
type plan struct {
	enc             Encoding
	placeSel        int
	tokenSel        int
	placeW, tokenW  int
	nnz             int
	segs            []segment
	size            int
}

func planFor(state []int32) plan {
	size := len(state)
	nnz := 0
	maxVal := int64(0)
	for _, v := range state {
		if v != 0 {
			nnz++
		}
		if int64(v) > maxVal {
			maxVal = int64(v)
		}
	}
	segs := segmentize(state)
	maxSegLen := 0
	for _, sg := range segs {
		maxSegLen = maxInt(maxSegLen, sg.length)
	}

	placeNeed := bitsFor(int64(nnz))
	placeNeed = maxInt(placeNeed, bitsFor(int64(size-1)))
	placeNeed = maxInt(placeNeed, bitsFor(int64(maxSegLen)))
	placeSel := widthBucket(placeWidths[:], placeNeed)
	tokenSel := widthBucket(tokenWidths[:], bitsFor(maxVal))
	placeW, tokenW := placeWidths[placeSel], tokenWidths[tokenSel]

	sparseBits := placeW + nnz*(placeW+tokenW)

	fullBits := placeW + size*tokenW

	// runBits carries no explicit segment count: decode reads segments
	// until it has reconstructed size values (state is always
	// non-empty, so there is always at least one segment to supply the
	// binary mode's starting-value bit).
	runBits := 0
	binary := tokenW == 1
	if binary {
		runBits++ // single starting-value bit
	}
	for _, sg := range segs {
		runBits += 1 + placeW
		if !binary {
			if sg.isRun {
				runBits += tokenW
			} else {
				runBits += sg.length * tokenW
			}
		}
	}

	best := Full
	bestBits := fullBits
	if sparseBits < bestBits {
		best, bestBits = Sparse, sparseBits
	}
	if runBits < bestBits {
		best, bestBits = Runlength, runBits
	}
	return plan{enc: best, placeSel: placeSel, tokenSel: tokenSel, placeW: placeW, tokenW: tokenW, nnz: nnz, segs: segs, size: size}
}

// encode writes state's header + payload under p, returning the
// flushed byte record.
func encode(state []int32, p plan) []byte {
	w := newBitWriter()
	w.buf = append(w.buf, header(p.enc, p.placeSel, p.tokenSel))

	switch p.enc {
	case Sparse:
		w.writeBits(uint64(p.nnz), p.placeW)
		for i, v := range state {
			if v == 0 {
				continue
			}
			w.writeBits(uint64(i), p.placeW)
			w.writeBits(uint64(v), p.tokenW)
		}
	case Full:
		w.writeBits(uint64(p.size-1), p.placeW)
		for _, v := range state {
			w.writeBits(uint64(v), p.tokenW)
		}
	case Runlength:
		binary := p.tokenW == 1
		if binary {
			w.writeBits(uint64(p.segs[0].values[0]), 1)
		}
		for _, sg := range p.segs {
			if sg.isRun {
				w.writeBits(1, 1)
			} else {
				w.writeBits(0, 1)
			}
			w.writeBits(uint64(sg.length), p.placeW)
			if !binary {
				if sg.isRun {
					w.writeBits(uint64(sg.values[0]), p.tokenW)
				} else {
					for _, v := range sg.values {
						w.writeBits(uint64(v), p.tokenW)
					}
				}
			}
		}
	}
	return w.bytes()
}

// Insert encodes state and appends it to the store, returning its
// handle. get(insert(s)) reconstructs s bit-exactly (spec.md §4.7,
// §8 property 5).
func (s *Store) Insert(state []int32) (Handle, error) {
	if len(state) != s.numVars {
		return 0, fmt.Errorf("compactstate: state has %d values, store has %d vars", len(state), s.numVars)
	}
	p := planFor(state)
	rec := encode(state, p)

	var h Handle
	if s.indexed {
		h = Handle(len(s.offset))
		s.offset = append(s.offset, int64(len(s.buf)))
	} else {
		h = Handle(len(s.buf))
	}
	s.buf = append(s.buf, rec...)

	switch p.enc {
	case Sparse:
		s.stats.Sparse++
	case Runlength:
		s.stats.Runlength++
	case Full:
		s.stats.Full++
	}
	return h, nil
}

// Get decodes the state at handle h into out, which must have length
// NumVars().
func (s *Store) Get(h Handle, out []int32) error {
	if len(out) != s.numVars {
		return fmt.Errorf("compactstate: output buffer has %d slots, store has %d vars", len(out), s.numVars)
	}
	offset, err := s.resolve(h)
	if err != nil {
		return err
	}
	if offset < 0 || int(offset) >= len(s.buf) {
		return fmt.Errorf("compactstate: handle %d out of range", h)
	}
	enc, placeSel, tokenSel := decodeHeader(s.buf[offset])
	if err := checkWidths(placeSel, tokenSel); err != nil {
		return err
	}
	placeW, tokenW := placeWidths[placeSel], tokenWidths[tokenSel]
	r := newBitReader(s.buf[offset+1:])

	for i := range out {
		out[i] = 0
	}
	switch enc {
	case Sparse:
		nnz := int(r.readBits(placeW))
		for i := 0; i < nnz; i++ {
			idx := int(r.readBits(placeW))
			val := int32(r.readBits(tokenW))
			if idx < 0 || idx >= len(out) {
				return fmt.Errorf("%w: decoded sparse index %d out of range", errCorrupt, idx)
			}
			out[idx] = val
		}
	case Full:
		size := int(r.readBits(placeW)) + 1
		if size != len(out) {
			return fmt.Errorf("%w: decoded full size %d does not match store width %d", errCorrupt, size, len(out))
		}
		for i := 0; i < size; i++ {
			out[i] = int32(r.readBits(tokenW))
		}
	case Runlength:
		binary := tokenW == 1
		var cur int32
		if binary {
			cur = int32(r.readBits(1))
		}
		pos := 0
		for pos < len(out) {
			isRun := r.readBits(1) == 1
			length := int(r.readBits(placeW))
			if length <= 0 {
				return fmt.Errorf("%w: runlength segment has non-positive length", errCorrupt)
			}
			if pos+length > len(out) {
				return fmt.Errorf("%w: runlength segment overruns state width", errCorrupt)
			}
			if binary {
				if isRun {
					for k := 0; k < length; k++ {
						out[pos+k] = cur
					}
					cur = 1 - cur
				} else {
					for k := 0; k < length; k++ {
						out[pos+k] = cur
						cur = 1 - cur
					}
				}
			} else if isRun {
				v := int32(r.readBits(tokenW))
				for k := 0; k < length; k++ {
					out[pos+k] = v
				}
			} else {
				for k := 0; k < length; k++ {
					out[pos+k] = int32(r.readBits(tokenW))
				}
			}
			pos += length
		}
		if pos != len(out) {
			return fmt.Errorf("%w: runlength segments cover %d of %d values", errCorrupt, pos, len(out))
		}
	default:
		return fmt.Errorf("%w: handle %d is a tombstone", errCorrupt, h)
	}
	return nil
}

func (s *Store) resolve(h Handle) (int64, error) {
	if !s.indexed {
		return int64(h), nil
	}
	if h < 0 || int(h) >= len(s.offset) {
		return 0, fmt.Errorf("compactstate: handle %d out of range", h)
	}
	return s.offset[h], nil
}

var errCorrupt = fmt.Errorf("compactstate: corrupt record")
