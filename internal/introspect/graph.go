package introspect

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ONNX protobuf field numbers on the path ModelProto.graph.input[0].type.
// tensor_type.shape.dim[*].dim_value.
const (
	fieldModelGraph        protowire.Number = 7
	fieldGraphInput        protowire.Number = 11
	fieldValueInfoType     protowire.Number = 2
	fieldTypeTensor        protowire.Number = 1
	fieldTensorShape       protowire.Number = 2
	fieldShapeDim          protowire.Number = 1
	fieldDimensionDimValue protowire.Number = 1
)

var errMalformedGraph = errors.New("malformed onnx graph")

// maxGraphInput caps the bytes buffered for the graph's first input record.
const maxGraphInput = 1 << 20

// introspectGraph reads the declared shape of the first graph input. Axis 2
// is the frequency bins and axis 3 the time frames. The file is streamed:
// initializers and other large fields are skipped without being buffered.
func introspectGraph(path string) (*Partial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read onnx: %w", err)
	}
	defer f.Close()

	input, err := streamGraphInput(bufio.NewReader(f))
	if input == nil || err != nil {
		return nil, err
	}
	dims, err := inputShape(input)
	if err != nil {
		return nil, err
	}
	if len(dims) < 4 || dims[2] <= 0 || dims[3] <= 0 {
		return nil, nil
	}
	return &Partial{
		Container:    ContainerGraph,
		DimF:         int(dims[2]),
		DimTExponent: log2Floor(int(dims[3])),
		NFFT:         graphNFFT,
	}, nil
}

// streamGraphInput returns the payload of ModelProto.graph.input[0], or nil
// when the model has no graph or no inputs.
func streamGraphInput(r *bufio.Reader) ([]byte, error) {
	graphLen, err := seekField(r, -1, fieldModelGraph)
	if graphLen < 0 || err != nil {
		return nil, err
	}
	inputLen, err := seekField(r, graphLen, fieldGraphInput)
	if inputLen < 0 || err != nil {
		return nil, err
	}
	if inputLen > maxGraphInput {
		return nil, fmt.Errorf("%w: graph input record of %d bytes", errMalformedGraph, inputLen)
	}
	buf := make([]byte, inputLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedGraph, err)
	}
	return buf, nil
}

// seekField consumes fields from r until it reaches length-delimited field
// num and returns its payload length, leaving r at the payload. At most limit
// bytes are consumed; a negative limit reads to EOF. It returns -1 when the
// field is absent.
func seekField(r *bufio.Reader, limit int64, num protowire.Number) (int64, error) {
	for limit != 0 {
		tag, n, err := readVarint(r)
		if err == io.EOF && n == 0 && limit < 0 {
			return -1, nil
		}
		if err != nil {
			return -1, fmt.Errorf("%w: %v", errMalformedGraph, err)
		}
		limit -= int64(n)
		fnum, typ := protowire.DecodeTag(tag)
		var skip int64
		switch typ {
		case protowire.VarintType:
			_, m, err := readVarint(r)
			if err != nil {
				return -1, fmt.Errorf("%w: %v", errMalformedGraph, err)
			}
			limit -= int64(m)
			continue
		case protowire.Fixed32Type:
			skip = 4
		case protowire.Fixed64Type:
			skip = 8
		case protowire.BytesType:
			size, m, err := readVarint(r)
			if err != nil {
				return -1, fmt.Errorf("%w: %v", errMalformedGraph, err)
			}
			limit -= int64(m)
			if fnum == num {
				return int64(size), nil
			}
			skip = int64(size)
		default:
			return -1, fmt.Errorf("%w: unsupported wire type %d", errMalformedGraph, typ)
		}
		if _, err := r.Discard(int(skip)); err != nil {
			return -1, fmt.Errorf("%w: %v", errMalformedGraph, err)
		}
		limit -= skip
	}
	return -1, nil
}

// readVarint decodes one base-128 varint and reports how many bytes it used.
func readVarint(r io.ByteReader) (uint64, int, error) {
	var x uint64
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, i, err
		}
		x |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return x, i + 1, nil
		}
	}
	return 0, binary.MaxVarintLen64, errors.New("varint overflow")
}

// inputShape returns dim_value for every axis of a graph input record.
// Symbolic axes are reported as 0.
func inputShape(input []byte) ([]int64, error) {
	typ, err := firstField(input, fieldValueInfoType)
	if typ == nil || err != nil {
		return nil, err
	}
	tensor, err := firstField(typ, fieldTypeTensor)
	if tensor == nil || err != nil {
		return nil, err
	}
	shape, err := firstField(tensor, fieldTensorShape)
	if shape == nil || err != nil {
		return nil, err
	}

	var dims []int64
	err = eachField(shape, func(num protowire.Number, typ protowire.Type, val []byte) error {
		if num != fieldShapeDim || typ != protowire.BytesType {
			return nil
		}
		var v int64
		err := eachField(val, func(n protowire.Number, t protowire.Type, raw []byte) error {
			if n == fieldDimensionDimValue && t == protowire.VarintType {
				x, m := protowire.ConsumeVarint(raw)
				if m < 0 {
					return errMalformedGraph
				}
				v = int64(x)
			}
			return nil
		})
		if err != nil {
			return err
		}
		dims = append(dims, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dims, nil
}

// firstField returns the payload of the first length-delimited field num.
func firstField(msg []byte, num protowire.Number) ([]byte, error) {
	var out []byte
	found := false
	err := eachField(msg, func(n protowire.Number, t protowire.Type, val []byte) error {
		if found || n != num || t != protowire.BytesType {
			return nil
		}
		out, found = val, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachField walks the top-level fields of msg. For BytesType fields val is the
// payload; for other types val is the raw encoded value.
func eachField(msg []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformedGraph, protowire.ParseError(n))
		}
		msg = msg[n:]
		var val []byte
		if typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(msg)
			if m < 0 {
				return fmt.Errorf("%w: %v", errMalformedGraph, protowire.ParseError(m))
			}
			val, n = v, m
		} else {
			m := protowire.ConsumeFieldValue(num, typ, msg)
			if m < 0 {
				return fmt.Errorf("%w: %v", errMalformedGraph, protowire.ParseError(m))
			}
			val, n = msg[:m], m
		}
		if err := fn(num, typ, val); err != nil {
			return err
		}
		msg = msg[n:]
	}
	return nil
}
