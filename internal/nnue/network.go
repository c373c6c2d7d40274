package nnue

import "github.com/hailam/nnsearch/internal/board"

// chunkSize is the number of transformed bytes the sparse layer treats as one
// unit when skipping zeros.
const chunkSize = 4

// outputLayers is one output bucket: the three layers after the feature
// transformer.
type outputLayers struct {
	// l1Weights is stored chunk-major: [L1Size/4][L2Size][4].
	l1Weights [L1Size * L2Size]int8
	l1Bias    [L2Size]int32
	l2Weights [L3Size * L2Size]int8 // [out][in]
	l2Bias    [L3Size]int32
	l3Weights [L3Size]int8
	l3Bias    int32
}

// Network holds the quantized weights. It is read-only once built and shared
// by every worker's Evaluator.
type Network struct {
	ftWeights []int16 // [InputSize][L1Size]
	ftBias    [L1Size]int16
	out       [OutputBuckets]outputLayers
}

func newNetwork() *Network {
	return &Network{ftWeights: make([]int16, InputSize*L1Size)}
}

func (n *Network) ftRow(feature int) []int16 {
	return n.ftWeights[feature*L1Size : (feature+1)*L1Size]
}

// l1WeightIndex maps a row-major [out][in] index to the chunk-major layout.
func l1WeightIndex(i int) int {
	out, in := i/L1Size, i%L1Size
	return (in/chunkSize*L2Size+out)*chunkSize + in%chunkSize
}

// forward runs the network on a computed accumulator pair.
func (n *Network) forward(acc *[2][L1Size]int16, stm board.Color, bucket int) int {
	var transformed [L1Size]uint8
	transform(acc, stm, &transformed)

	layers := &n.out[bucket]

	var l1Out [L2Size]int32
	layers.propagateL1(&transformed, &l1Out)
	var l1Act [L2Size]uint8
	clippedSquare(l1Out[:], l1Act[:])

	var l2Out [L3Size]int32
	for o := 0; o < L3Size; o++ {
		sum := layers.l2Bias[o]
		row := layers.l2Weights[o*L2Size : (o+1)*L2Size]
		for i, x := range l1Act {
			sum += int32(row[i]) * int32(x)
		}
		l2Out[o] = sum
	}
	var l2Act [L3Size]uint8
	clippedSquare(l2Out[:], l2Act[:])

	raw := layers.l3Bias
	for i, x := range l2Act {
		raw += int32(layers.l3Weights[i]) * int32(x)
	}
	return int(raw) * OutputScale / (ActivationRange << WeightScaleBits)
}

// transform clips both halves of each perspective and multiplies them
// pairwise, side to move first.
func transform(acc *[2][L1Size]int16, stm board.Color, out *[L1Size]uint8) {
	const half = L1Size / 2
	for i, persp := range [2]board.Color{stm, stm.Other()} {
		a := &acc[persp]
		dst := out[i*half : (i+1)*half]
		for j := range dst {
			x := clip(int32(a[j]), FTClip)
			y := clip(int32(a[j+half]), FTClip)
			dst[j] = uint8(x * y >> 9)
		}
	}
}

// propagateL1 is the sparse affine layer: only nonzero 4-byte chunks of the
// input contribute.
func (l *outputLayers) propagateL1(in *[L1Size]uint8, out *[L2Size]int32) {
	*out = l.l1Bias

	var nnz [L1Size / chunkSize]uint16
	count := 0
	for c := 0; c < L1Size/chunkSize; c++ {
		b := in[c*chunkSize : (c+1)*chunkSize]
		if b[0]|b[1]|b[2]|b[3] != 0 {
			nnz[count] = uint16(c)
			count++
		}
	}

	for _, c := range nnz[:count] {
		b := in[int(c)*chunkSize : (int(c)+1)*chunkSize]
		w := l.l1Weights[int(c)*L2Size*chunkSize : (int(c)+1)*L2Size*chunkSize]
		for o := 0; o < L2Size; o++ {
			k := o * chunkSize
			out[o] += int32(w[k])*int32(b[0]) +
				int32(w[k+1])*int32(b[1]) +
				int32(w[k+2])*int32(b[2]) +
				int32(w[k+3])*int32(b[3])
		}
	}
}

// clippedSquare scales a layer output back to activation units, clips it and
// squares it.
func clippedSquare(in []int32, out []uint8) {
	for i, x := range in {
		c := clip(x>>WeightScaleBits, ActivationRange)
		out[i] = uint8(c * c >> 7)
	}
}

func clip(x, hi int32) int32 {
	if x < 0 {
		return 0
	}
	if x > hi {
		return hi
	}
	return x
}
