package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// The structured capture format is a PCD file: a text header followed by a
// binary payload. The header layout is fixed by the dataset, line by line:
//
//	line 0:  "#" comment
//	line 1:  VERSION <version>
//	line 3:  SIZE <int per field>
//	line 4:  TYPE <F|I|U per field>
//	line 5:  COUNT <int per field, all 1>
//	line 6:  WIDTH <int, > 0>
//	line 7:  HEIGHT <int, must be 1>
//	line 10: DATA binary
//
// Lines not listed are ignored. The payload is WIDTH points of the declared
// fields, row major, little endian.
const (
	pcdCommentChar    = "#"
	pcdHeaderLines    = 11
	pcdSizeLine       = 3
	pcdTypeLine       = 4
	pcdCountLine      = 5
	pcdWidthLine      = 6
	pcdHeightLine     = 7
	pcdDataLine       = 10
	pcdDynPropRow     = 3
	pcdAmbigStateRow  = 11
	pcdInvalidFromEnd = 4
)

type pcdHeader struct {
	sizes []int
	types []string
	width int
}

func (h *pcdHeader) featureCount() int {
	return len(h.types)
}

// fieldDecoder decodes one scalar from a little-endian byte slice.
type fieldDecoder func(b []byte) float64

// lookupFieldDecoder maps a (type code, byte size) pair to its decode
// primitive. Floats come in half, single and double precision; integers in
// 1, 2, 4 and 8 bytes, signed and unsigned.
func lookupFieldDecoder(typeCode string, size int) (fieldDecoder, bool) {
	switch typeCode {
	case "F":
		switch size {
		case 2:
			return func(b []byte) float64 {
				return float64(float16frombits(binary.LittleEndian.Uint16(b)))
			}, true
		case 4:
			return func(b []byte) float64 {
				return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			}, true
		case 8:
			return func(b []byte) float64 {
				return math.Float64frombits(binary.LittleEndian.Uint64(b))
			}, true
		}
	case "I":
		switch size {
		case 1:
			return func(b []byte) float64 { return float64(int8(b[0])) }, true
		case 2:
			return func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) }, true
		case 4:
			return func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) }, true
		case 8:
			return func(b []byte) float64 { return float64(int64(binary.LittleEndian.Uint64(b))) }, true
		}
	case "U":
		switch size {
		case 1:
			return func(b []byte) float64 { return float64(b[0]) }, true
		case 2:
			return func(b []byte) float64 { return float64(binary.LittleEndian.Uint16(b)) }, true
		case 4:
			return func(b []byte) float64 { return float64(binary.LittleEndian.Uint32(b)) }, true
		case 8:
			return func(b []byte) float64 { return float64(binary.LittleEndian.Uint64(b)) }, true
		}
	}
	return nil, false
}

// float16frombits expands an IEEE 754 half-precision value.
func float16frombits(bits uint16) float32 {
	sign := float32(1)
	if bits&0x8000 != 0 {
		sign = -1
	}
	exp := int((bits >> 10) & 0x1f)
	frac := float32(bits & 0x3ff)
	switch {
	case exp == 0x1f:
		if frac != 0 {
			return float32(math.NaN())
		}
		return sign * float32(math.Inf(1))
	case exp == 0:
		return sign * frac * float32(0x1p-24)
	default:
		return sign * (1 + frac/0x400) * float32(math.Pow(2, float64(exp-15)))
	}
}

// parsePCDHeader consumes header lines from the reader until the DATA line,
// inclusive, and validates every literal constraint of the layout above.
func parsePCDHeader(in *bufio.Reader) (*pcdHeader, error) {
	var meta []string
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedHeader, "header ended before a DATA line: %s", err)
		}
		line = strings.TrimSpace(line)
		meta = append(meta, line)
		if strings.HasPrefix(line, "DATA") {
			break
		}
	}
	if len(meta) < pcdHeaderLines {
		return nil, errors.Wrapf(ErrMalformedHeader, "header has %d lines through DATA, want %d", len(meta), pcdHeaderLines)
	}
	if !strings.HasPrefix(meta[0], pcdCommentChar) {
		return nil, errors.Wrap(ErrMalformedHeader, "first line must be a comment")
	}
	if !strings.HasPrefix(meta[1], "VERSION") {
		return nil, errors.Wrap(ErrMalformedHeader, "second line must declare VERSION")
	}

	sizeTokens, err := headerTokens(meta[pcdSizeLine], "SIZE")
	if err != nil {
		return nil, err
	}
	typeTokens, err := headerTokens(meta[pcdTypeLine], "TYPE")
	if err != nil {
		return nil, err
	}
	countTokens, err := headerTokens(meta[pcdCountLine], "COUNT")
	if err != nil {
		return nil, err
	}
	if len(typeTokens) != len(sizeTokens) || len(countTokens) != len(sizeTokens) {
		return nil, errors.Wrapf(ErrMalformedHeader,
			"SIZE, TYPE and COUNT must agree on field count, got %d, %d, %d",
			len(sizeTokens), len(typeTokens), len(countTokens))
	}

	header := &pcdHeader{types: typeTokens}
	header.sizes = make([]int, len(sizeTokens))
	for i, token := range sizeTokens {
		header.sizes[i], err = strconv.Atoi(token)
		if err != nil || header.sizes[i] <= 0 {
			return nil, errors.Wrapf(ErrMalformedHeader, "invalid SIZE field %q", token)
		}
	}
	for _, token := range countTokens {
		if token != "1" {
			return nil, errors.Wrapf(ErrMalformedHeader, "COUNT other than 1 is not supported, got %q", token)
		}
	}

	header.width, err = headerIntValue(meta[pcdWidthLine], "WIDTH")
	if err != nil {
		return nil, err
	}
	if header.width <= 0 {
		return nil, errors.Wrapf(ErrMalformedHeader, "WIDTH must be positive, got %d", header.width)
	}
	height, err := headerIntValue(meta[pcdHeightLine], "HEIGHT")
	if err != nil {
		return nil, err
	}
	if height != 1 {
		// Organized clouds are not produced by this sensor family.
		return nil, errors.Wrapf(ErrMalformedHeader, "HEIGHT must be 1, got %d", height)
	}
	field, value, _ := strings.Cut(meta[pcdDataLine], " ")
	if field != "DATA" || value != "binary" {
		return nil, errors.Wrapf(ErrMalformedHeader, "DATA must be binary, got %q", meta[pcdDataLine])
	}
	return header, nil
}

func headerTokens(line, name string) ([]string, error) {
	field, value, found := strings.Cut(line, " ")
	if field != name || !found {
		return nil, errors.Wrapf(ErrMalformedHeader, "line is supposed to start with %s but is %q", name, line)
	}
	return strings.Fields(value), nil
}

func headerIntValue(line, name string) (int, error) {
	tokens, err := headerTokens(line, name)
	if err != nil {
		return 0, err
	}
	if len(tokens) != 1 {
		return 0, errors.Wrapf(ErrMalformedHeader, "%s wants a single value, got %q", name, line)
	}
	v, err := strconv.Atoi(tokens[0])
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedHeader, "invalid %s field %q", name, tokens[0])
	}
	return v, nil
}

// ReadPCD decodes a structured binary capture. The returned cloud's row count
// is the header's field count. A NaN anywhere in the first decoded point is
// the dataset's marker for an intentionally empty capture and yields a
// zero-point cloud with the header-derived dimensionality; it is not an
// error. Filters may be nil for the format defaults.
func ReadPCD(inRaw io.Reader, filters *RadarFilters) (*Cloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := parsePCDHeader(in)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}

	fields := header.featureCount()
	decoders := make([]fieldDecoder, fields)
	for i := range decoders {
		decoder, ok := lookupFieldDecoder(header.types[i], header.sizes[i])
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedFieldEncoding,
				"no decode primitive for type %s size %d", header.types[i], header.sizes[i])
		}
		decoders[i] = decoder
	}

	values := make([]float64, 0, header.width*fields)
	offset := 0
	for i := 0; i < header.width; i++ {
		for p := 0; p < fields; p++ {
			end := offset + header.sizes[p]
			if end >= len(payload) {
				return nil, errors.Wrapf(ErrTruncatedPayload,
					"point %d field %d wants bytes [%d, %d) of a %d byte payload", i, p, offset, end, len(payload))
			}
			values = append(values, decoders[p](payload[offset:end]))
			offset = end
		}
	}

	// A NaN in the first point marks an intentionally empty capture.
	for p := 0; p < fields; p++ {
		if math.IsNaN(values[p]) {
			return NewEmptyCloud(fields), nil
		}
	}

	points := mat.NewDense(fields, header.width, nil)
	for i := 0; i < header.width; i++ {
		for p := 0; p < fields; p++ {
			points.Set(p, i, values[i*fields+p])
		}
	}
	cloud, err := NewCloud(fields, points)
	if err != nil {
		return nil, err
	}
	if err := applyRadarFilters(cloud, filters); err != nil {
		return nil, err
	}
	return cloud, nil
}

// applyRadarFilters narrows the cloud with the three membership filters, in
// sequence: invalid state (4th row from the end), dynamic property (row 3)
// and ambiguity state (row 11). The filters compose by intersection.
func applyRadarFilters(cloud *Cloud, filters *RadarFilters) error {
	if cloud.Dims() < pcdAmbigStateRow+1 || cloud.Dims() < pcdInvalidFromEnd {
		return errors.Wrapf(ErrMalformedHeader, "%d fields are too few for validity filtering", cloud.Dims())
	}
	resolved := DefaultRadarFilters()
	if filters != nil {
		if filters.InvalidStates != nil {
			resolved.InvalidStates = filters.InvalidStates
		}
		if filters.DynPropStates != nil {
			resolved.DynPropStates = filters.DynPropStates
		}
		if filters.AmbigStates != nil {
			resolved.AmbigStates = filters.AmbigStates
		}
	}
	cloud.keepRowMembers(cloud.Dims()-pcdInvalidFromEnd, resolved.InvalidStates)
	cloud.keepRowMembers(pcdDynPropRow, resolved.DynPropStates)
	cloud.keepRowMembers(pcdAmbigStateRow, resolved.AmbigStates)
	return nil
}

// keepRowMembers keeps only the points whose value in the given row is a
// member of the allow set.
func (c *Cloud) keepRowMembers(row int, allow []int) {
	n := c.Size()
	if n == 0 {
		return
	}
	keep := make([]int, 0, n)
	for col := 0; col < n; col++ {
		v := c.points.At(row, col)
		for _, a := range allow {
			if v == float64(a) {
				keep = append(keep, col)
				break
			}
		}
	}
	c.selectColumns(keep)
}

// WritePCD writes an 18-row radar cloud in the structured binary layout,
// using the canonical radar field set. A trailing newline follows the
// payload, as in the capture files the sensors emit.
func WritePCD(out io.Writer, cloud *Cloud) error {
	if cloud.Dims() != radarDims {
		return newShapeMismatchError(radarDims, cloud.Dims())
	}
	n := cloud.Size()
	headerLines := []string{
		"# .PCD v0.7 - Point Cloud Data file format",
		"VERSION 0.7",
		"FIELDS " + strings.Join(radarFieldNames[:], " "),
		"SIZE " + intsToLine(radarFieldSizes[:]),
		"TYPE " + strings.Join(radarFieldTypes[:], " "),
		"COUNT " + strings.TrimRight(strings.Repeat("1 ", radarDims), " "),
		fmt.Sprintf("WIDTH %d", n),
		"HEIGHT 1",
		"VIEWPOINT 0 0 0 1 0 0 0",
		fmt.Sprintf("POINTS %d", n),
		"DATA binary",
	}
	if _, err := fmt.Fprintf(out, "%s\n", strings.Join(headerLines, "\n")); err != nil {
		return err
	}
	for col := 0; col < n; col++ {
		for row := 0; row < radarDims; row++ {
			if err := writePCDField(out, radarFieldTypes[row], radarFieldSizes[row], cloud.Matrix().At(row, col)); err != nil {
				return err
			}
		}
	}
	_, err := out.Write([]byte{'\n'})
	return err
}

func writePCDField(out io.Writer, typeCode string, size int, v float64) error {
	buf := make([]byte, size)
	switch {
	case typeCode == "F" && size == 4:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case typeCode == "F" && size == 8:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	case typeCode == "I" || typeCode == "U":
		u := uint64(int64(v))
		for i := 0; i < size; i++ {
			buf[i] = byte(u >> (8 * i))
		}
	default:
		return errors.Wrapf(ErrUnsupportedFieldEncoding, "no encode primitive for type %s size %d", typeCode, size)
	}
	_, err := out.Write(buf)
	return err
}

func intsToLine(vals []int) string {
	tokens := make([]string, len(vals))
	for i, v := range vals {
		tokens[i] = strconv.Itoa(v)
	}
	return strings.Join(tokens, " ")
}
