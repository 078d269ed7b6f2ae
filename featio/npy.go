// Package featio는 특징 행렬(멜 스펙트로그램, MFCC, 크기 스펙트로그램)을
// NumPy .npy 파일로 읽고 쓴다.
//
// 실수형 float16(<f2), float32(<f4), float64(<f8)를 지원하며 빅 엔디언과
// fortran_order 배열도 읽는다. 1차원 배열은 프레임 하나짜리 [n × 1] 행렬로 읽는다.
package featio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/inverse"
)

// ErrFormat은 .npy 헤더나 데이터가 잘못되었을 때 감싸지는 오류다.
var ErrFormat = errors.New("malformed npy file")

// Kind는 저장 원소 형식이다.
type Kind int

const (
	Float32 Kind = iota
	Float16
	Float64
)

// KindOf는 행렬 정밀도에 맞는 저장 형식을 고른다.
func KindOf(dtype inverse.DType) Kind {
	if dtype == inverse.Float64 {
		return Float64
	}
	return Float32
}

func (k Kind) size() int {
	switch k {
	case Float16:
		return 2
	case Float64:
		return 8
	default:
		return 4
	}
}

func (k Kind) descr() string {
	return fmt.Sprintf("<f%d", k.size())
}

var magic = []byte("\x93NUMPY")

const (
	// maxElements는 한 배열에 허용하는 원소 수 상한이다(float64 기준 512MiB).
	maxElements = 1 << 26
	readChunk   = 1 << 16
)

// Read는 .npy 파일을 읽는다.
func Read(path string) (m *inverse.Matrix, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open npy file failed")
	}
	defer func() {
		if err0 := f.Close(); err0 != nil {
			err = multierr.Append(err, err0)
		}
	}()

	return Decode(bufio.NewReader(f))
}

// Decode는 r에서 .npy 배열 하나를 읽는다.
// float64 배열은 inverse.Float64, 그 외는 inverse.Float32 행렬이 된다.
func Decode(r io.Reader) (*inverse.Matrix, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	n := h.rows * h.cols
	size := h.kind.size()
	// 헤더의 shape만 믿고 한 번에 할당하지 않고, 실제로 읽힌 만큼만 늘린다.
	values := make([]float64, 0, min(n, readChunk/size))
	raw := make([]byte, min(n*size, readChunk))
	for len(values) < n {
		chunk := raw[:min((n-len(values))*size, len(raw))]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, errors.Wrapf(ErrFormat, "read %d values failed after %d: %v", n, len(values), err)
		}
		for i := 0; i < len(chunk); i += size {
			b := chunk[i:]
			switch h.kind {
			case Float16:
				values = append(values, float64(float16.Frombits(h.order.Uint16(b)).Float32()))
			case Float32:
				values = append(values, float64(math.Float32frombits(h.order.Uint32(b))))
			case Float64:
				values = append(values, math.Float64frombits(h.order.Uint64(b)))
			}
		}
	}

	data := mat.NewDense(h.rows, h.cols, nil)
	for i, v := range values {
		if h.fortran {
			data.Set(i%h.rows, i/h.rows, v)
		} else {
			data.Set(i/h.cols, i%h.cols, v)
		}
	}

	dtype := inverse.Float32
	if h.kind == Float64 {
		dtype = inverse.Float64
	}
	return &inverse.Matrix{Dense: data, DType: dtype}, nil
}

// Write는 m을 kind 형식의 C 순서 2차원 .npy 파일로 쓴다.
func Write(path string, m mat.Matrix, kind Kind) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create npy file failed")
	}
	defer func() {
		if err0 := f.Close(); err0 != nil {
			err = multierr.Append(err, err0)
		}
	}()

	w := bufio.NewWriter(f)
	if err := Encode(w, m, kind); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "flush npy file failed")
}

// Encode는 m을 kind 형식의 .npy 배열로 w에 쓴다.
func Encode(w io.Writer, m mat.Matrix, kind Kind) error {
	if m == nil {
		return errors.New("nil matrix")
	}
	if kind != Float16 && kind != Float32 && kind != Float64 {
		return errors.Errorf("unsupported npy kind: %d", kind)
	}
	rows, cols := m.Dims()

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }", kind.descr(), rows, cols)
	// 매직(6) + 버전(2) + 길이(2) + 헤더 + 개행이 64바이트 경계에 맞도록 공백을 채운다.
	total := len(magic) + 4 + len(header) + 1
	header += strings.Repeat(" ", (64-total%64)%64) + "\n"

	var buf bytes.Buffer
	buf.Write(magic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "write npy header failed")
	}

	row := make([]byte, cols*kind.size())
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			b := row[j*kind.size():]
			v := m.At(i, j)
			switch kind {
			case Float16:
				binary.LittleEndian.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
			case Float32:
				binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
			case Float64:
				binary.LittleEndian.PutUint64(b, math.Float64bits(v))
			}
		}
		if _, err := w.Write(row); err != nil {
			return errors.Wrap(err, "write npy data failed")
		}
	}
	return nil
}

type header struct {
	kind       Kind
	order      binary.ByteOrder
	fortran    bool
	rows, cols int
}

var (
	descrPattern   = regexp.MustCompile(`'descr'\s*:\s*'([<>|=])([a-z])(\d+)'`)
	fortranPattern = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapePattern   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

func readHeader(r io.Reader) (header, error) {
	var h header

	prefix := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return h, errors.Wrapf(ErrFormat, "read magic failed: %v", err)
	}
	if !bytes.Equal(prefix[:len(magic)], magic) {
		return h, errors.Wrap(ErrFormat, "bad magic")
	}

	var headerLen int
	switch major := prefix[len(magic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return h, errors.Wrapf(ErrFormat, "read header length failed: %v", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return h, errors.Wrapf(ErrFormat, "read header length failed: %v", err)
		}
		if n > 1<<20 {
			return h, errors.Wrapf(ErrFormat, "header too large: %d bytes", n)
		}
		headerLen = int(n)
	default:
		return h, errors.Wrapf(ErrFormat, "unsupported npy version %d", major)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return h, errors.Wrapf(ErrFormat, "read header failed: %v", err)
	}
	text := string(raw)

	descr := descrPattern.FindStringSubmatch(text)
	if descr == nil {
		return h, errors.Wrapf(ErrFormat, "missing descr in header %q", strings.TrimSpace(text))
	}
	if descr[2] != "f" {
		return h, errors.Wrapf(ErrFormat, "unsupported dtype %s%s%s", descr[1], descr[2], descr[3])
	}
	switch descr[3] {
	case "2":
		h.kind = Float16
	case "4":
		h.kind = Float32
	case "8":
		h.kind = Float64
	default:
		return h, errors.Wrapf(ErrFormat, "unsupported float width %s", descr[3])
	}
	h.order = binary.LittleEndian
	if descr[1] == ">" {
		h.order = binary.BigEndian
	}

	if fortran := fortranPattern.FindStringSubmatch(text); fortran != nil {
		h.fortran = fortran[1] == "True"
	}

	shape := shapePattern.FindStringSubmatch(text)
	if shape == nil {
		return h, errors.Wrapf(ErrFormat, "missing shape in header %q", strings.TrimSpace(text))
	}
	var dims []int
	for _, field := range strings.Split(shape[1], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		d, err := strconv.Atoi(field)
		if err != nil || d <= 0 {
			return h, errors.Wrapf(ErrFormat, "invalid shape (%s)", shape[1])
		}
		dims = append(dims, d)
	}
	switch len(dims) {
	case 1:
		h.rows, h.cols = dims[0], 1
	case 2:
		h.rows, h.cols = dims[0], dims[1]
	default:
		return h, errors.Wrapf(ErrFormat, "want a 1-D or 2-D array, got shape (%s)", shape[1])
	}
	if h.rows > maxElements/h.cols {
		return h, errors.Wrapf(ErrFormat, "shape (%s) exceeds %d elements", shape[1], maxElements)
	}
	return h, nil
}
