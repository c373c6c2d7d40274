package nnue

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// Network stream layout, little-endian, no header:
//   - feature transformer weights: InputSize * L1Size int16
//   - feature transformer biases: L1Size int16
//   - per output bucket:
//     l1 weights L2Size*L1Size int8 (row-major [out][in]), l1 biases L2Size int32,
//     l2 weights L3Size*L2Size int8, l2 biases L3Size int32,
//     l3 weights L3Size int8, l3 bias int32
const bucketBytes = L2Size*L1Size + 4*L2Size + L3Size*L2Size + 4*L3Size + L3Size + 4

// ExpectedSize returns the exact length in bytes of a network stream.
func ExpectedSize() int {
	return 2*InputSize*L1Size + 2*L1Size + OutputBuckets*bucketBytes
}

// LoadFile reads a network from path.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	defer f.Close()

	net, err := Load(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bytes", ExpectedSize()).Msg("network loaded")
	return net, nil
}

// Load reads a network stream. The stream must hold exactly ExpectedSize
// bytes; anything shorter or longer fails with ErrSizeMismatch.
func Load(r io.Reader) (*Network, error) {
	want := ExpectedSize()
	buf := make([]byte, want)
	n, err := io.ReadFull(r, buf)
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, want)
	case err != nil:
		return nil, fmt.Errorf("failed to read network: %w", err)
	}

	extra, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read network: %w", err)
	}
	if extra != 0 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, int64(want)+extra, want)
	}

	net := newNetwork()
	d := decoder{buf: buf}
	for i := range net.ftWeights {
		net.ftWeights[i] = d.int16()
	}
	for i := range net.ftBias {
		net.ftBias[i] = d.int16()
	}
	for b := range net.out {
		l := &net.out[b]
		for i := 0; i < L2Size*L1Size; i++ {
			l.l1Weights[l1WeightIndex(i)] = d.int8()
		}
		for i := range l.l1Bias {
			l.l1Bias[i] = d.int32()
		}
		for i := range l.l2Weights {
			l.l2Weights[i] = d.int8()
		}
		for i := range l.l2Bias {
			l.l2Bias[i] = d.int32()
		}
		for i := range l.l3Weights {
			l.l3Weights[i] = d.int8()
		}
		l.l3Bias = d.int32()
	}
	return net, nil
}

// Save writes the network in the layout Load reads.
func (n *Network) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	buf := make([]byte, 0, 4096)
	flush := func() error {
		_, err := bw.Write(buf)
		buf = buf[:0]
		return err
	}

	for i, v := range n.ftWeights {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
		if i%1024 == 1023 {
			if err := flush(); err != nil {
				return fmt.Errorf("failed to write network: %w", err)
			}
		}
	}
	for _, v := range n.ftBias {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
	}
	if err := flush(); err != nil {
		return fmt.Errorf("failed to write network: %w", err)
	}

	for b := range n.out {
		l := &n.out[b]
		for i := 0; i < L2Size*L1Size; i++ {
			buf = append(buf, byte(l.l1Weights[l1WeightIndex(i)]))
		}
		for _, v := range l.l1Bias {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
		for _, v := range l.l2Weights {
			buf = append(buf, byte(v))
		}
		for _, v := range l.l2Bias {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
		for _, v := range l.l3Weights {
			buf = append(buf, byte(v))
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(l.l3Bias))
		if err := flush(); err != nil {
			return fmt.Errorf("failed to write network: %w", err)
		}
	}
	return bw.Flush()
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) int8() int8 {
	v := int8(d.buf[d.off])
	d.off++
	return v
}

func (d *decoder) int16() int16 {
	v := int16(binary.LittleEndian.Uint16(d.buf[d.off:]))
	d.off += 2
	return v
}

func (d *decoder) int32() int32 {
	v := int32(binary.LittleEndian.Uint32(d.buf[d.off:]))
	d.off += 4
	return v
}

// NewRandomNetwork builds a deterministic network from seed. Its weights are
// small enough that every intermediate value stays in range; it plays legal
// but weak chess and exists for tests and benchmarks without a network file.
func NewRandomNetwork(seed uint64) *Network {
	state := seed
	next := func(bits uint) int32 {
		state = state*6364136223846793005 + 1442695040888963407
		return int32(state>>(64-bits)) - 1<<(bits-1)
	}

	n := newNetwork()
	for i := range n.ftWeights {
		n.ftWeights[i] = int16(next(5)) // -16..15
	}
	for i := range n.ftBias {
		n.ftBias[i] = int16(next(8) + 128) // 0..255
	}
	for b := range n.out {
		l := &n.out[b]
		for i := range l.l1Weights {
			l.l1Weights[i] = int8(next(3))
		}
		for i := range l.l1Bias {
			l.l1Bias[i] = next(10)
		}
		for i := range l.l2Weights {
			l.l2Weights[i] = int8(next(5))
		}
		for i := range l.l2Bias {
			l.l2Bias[i] = next(10)
		}
		for i := range l.l3Weights {
			l.l3Weights[i] = int8(next(2))
		}
		l.l3Bias = next(8)
	}
	return n
}

// materialUnits is the accumulator weight of each own piece type in
// NewMaterialNetwork, six per pawn. Kings count nothing.
var materialUnits = [6]int16{6, 18, 18, 30, 54, 0}

// NewMaterialNetwork builds a network that counts material and nothing else,
// from the side to move's point of view: a pawn is worth 66, a queen 859.
// Positions with equal material evaluate to exactly 0.
func NewMaterialNetwork() *Network {
	const half = L1Size / 2
	n := newNetwork()

	// Neuron 0 sums own material; its partner in the second half is held at
	// the clip so the pairwise product is linear in it.
	for f := 0; f < InputSize; f++ {
		r := f % FeaturesPerBucket
		if r < 384 {
			n.ftWeights[f*L1Size] = materialUnits[r/64]
		}
	}
	n.ftBias[half] = FTClip

	// Each hidden layer carries the difference d as a pair of neurons
	// centred on 64, (64+d/2) and (64-d/2). The difference of their squares
	// is d again.
	const centre = 64 << WeightScaleBits
	for b := range n.out {
		l := &n.out[b]
		l.l1Weights[l1WeightIndex(0*L1Size)] = 32
		l.l1Weights[l1WeightIndex(0*L1Size+half)] = -32
		l.l1Weights[l1WeightIndex(1*L1Size)] = -32
		l.l1Weights[l1WeightIndex(1*L1Size+half)] = 32
		l.l1Bias[0], l.l1Bias[1] = centre, centre

		for o := 0; o < L3Size; o += 2 {
			l.l2Weights[o*L2Size], l.l2Weights[o*L2Size+1] = 32, -32
			l.l2Weights[(o+1)*L2Size], l.l2Weights[(o+1)*L2Size+1] = -32, 32
			l.l2Bias[o], l.l2Bias[o+1] = centre, centre
			l.l3Weights[o], l.l3Weights[o+1] = 42, -42
		}
	}
	return n
}
