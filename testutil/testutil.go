package testutil

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"

	"github.com/hupe1980/numidx/record"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// DatasetOptions controls Dataset generation.
type DatasetOptions struct {
	// FirstID is the smallest possible id. Default: 1.
	FirstID uint64
	// MaxGap is the largest distance between consecutive ids. Gaps are drawn
	// uniformly from [1, MaxGap]. Default: 1 (dense ids).
	MaxGap int
	// PayloadSize is the payload length of every record. Zero writes empty payloads.
	PayloadSize int
	// Compressible fills payloads with a repeating pattern instead of random bytes.
	Compressible bool
}

// Dataset is a generated set of records with strictly increasing ids.
// Offsets is filled in by Synthesize or by writing the dataset.
type Dataset struct {
	IDs      []uint64
	Payloads [][]byte
	Offsets  []int64
}

// Dataset generates n records.
func (r *RNG) Dataset(n int, opts DatasetOptions) *Dataset {
	if opts.FirstID == 0 {
		opts.FirstID = 1
	}
	if opts.MaxGap < 1 {
		opts.MaxGap = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ds := &Dataset{
		IDs:      make([]uint64, n),
		Payloads: make([][]byte, n),
	}
	id := opts.FirstID
	for i := 0; i < n; i++ {
		if i > 0 {
			id += uint64(1 + r.rand.Intn(opts.MaxGap))
		}
		ds.IDs[i] = id

		p := make([]byte, opts.PayloadSize)
		if opts.Compressible {
			copy(p, bytes.Repeat([]byte(fmt.Sprintf("record-%d|", id)), opts.PayloadSize))
		} else {
			_, _ = r.rand.Read(p)
		}
		ds.Payloads[i] = p
	}
	return ds
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.IDs) }

// Synthesize assigns strictly increasing offsets without writing a data file,
// spacing records by stride bytes. It returns d.
func (d *Dataset) Synthesize(stride int64) *Dataset {
	d.Offsets = make([]int64, len(d.IDs))
	for i := range d.IDs {
		d.Offsets[i] = int64(i) * stride
	}
	return d
}

// Source returns the (id, offset) stream as a record source.
func (d *Dataset) Source() record.SliceSource {
	src := make(record.SliceSource, len(d.IDs))
	for i, id := range d.IDs {
		src[i] = record.Record{ID: id, Offset: d.Offsets[i]}
	}
	return src
}

// OffsetOf returns the offset of id.
func (d *Dataset) OffsetOf(id uint64) (int64, bool) {
	i := sort.Search(len(d.IDs), func(i int) bool { return d.IDs[i] >= id })
	if i < len(d.IDs) && d.IDs[i] == id && i < len(d.Offsets) {
		return d.Offsets[i], true
	}
	return 0, false
}

// Contains reports whether id is part of the dataset.
func (d *Dataset) Contains(id uint64) bool {
	i := sort.Search(len(d.IDs), func(i int) bool { return d.IDs[i] >= id })
	return i < len(d.IDs) && d.IDs[i] == id
}

// Write writes all records as frames to w and records their offsets.
func (d *Dataset) Write(w io.Writer, comp record.Compression) error {
	wr := record.NewWriter(w, record.WithCompression(comp))
	d.Offsets = make([]int64, len(d.IDs))
	for i, id := range d.IDs {
		off, err := wr.Append(id, d.Payloads[i])
		if err != nil {
			return err
		}
		d.Offsets[i] = off
	}
	return wr.Flush()
}

// Bytes returns the dataset encoded as a data file.
func (d *Dataset) Bytes(comp record.Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf, comp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the dataset to a data file at path.
func (d *Dataset) WriteFile(path string, comp record.Compression) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Write(f, comp); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Queries returns n ids drawn from d. Roughly missRate of them are not in d.
func (r *RNG) Queries(d *Dataset, n int, missRate float64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, n)
	for i := range out {
		if d.Len() == 0 || r.rand.Float64() < missRate {
			out[i] = r.missLocked(d)
			continue
		}
		out[i] = d.IDs[r.rand.Intn(d.Len())]
	}
	return out
}

// missLocked returns an id that is not in d.
func (r *RNG) missLocked(d *Dataset) uint64 {
	if d.Len() == 0 {
		return r.rand.Uint64()
	}
	last := d.IDs[d.Len()-1]
	for range 16 {
		// Probe inside the id range first, where misses exercise page descent.
		cand := d.IDs[0] + uint64(r.rand.Int63n(int64(last-d.IDs[0])+1))
		if !d.Contains(cand) {
			return cand
		}
	}
	if d.IDs[0] > 0 {
		return d.IDs[0] - 1
	}
	return last + 1 + uint64(r.rand.Intn(1000))
}

// ZipfQueries returns n ids from d whose positions follow a Zipf law with skew
// s, so a few ids are hot. Useful for page cache workloads.
func (r *RNG) ZipfQueries(d *Dataset, n int, s float64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint64, n)
	if d.Len() == 0 {
		return out[:0]
	}
	for i := range out {
		out[i] = d.IDs[r.zipfLocked(d.Len(), s)]
	}
	return out
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Shuffle returns a shuffled copy of ids.
func (r *RNG) Shuffle(ids []uint64) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := append([]uint64(nil), ids...)
	r.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
