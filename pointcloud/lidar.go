package pointcloud

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

const (
	lidarDims = 4

	// Lidar captures are stored as flat little-endian float32 records of
	// x, y, z, intensity, ring index. The ring index is dropped on decode.
	lidarRecordFloats = 5
	lidarRecordBytes  = lidarRecordFloats * 4
)

// LidarFormat decodes the dense fixed-stride lidar capture format. Decoded
// clouds have 4 rows: x, y, z, intensity.
type LidarFormat struct{}

// Dims implements Format.
func (LidarFormat) Dims() int {
	return lidarDims
}

// DecodeFile implements Format. The file must carry the .bin extension.
func (f LidarFormat) DecodeFile(fn string, logger golog.Logger) (*Cloud, error) {
	if filepath.Ext(fn) != ".bin" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "lidar decode wants a .bin file, got %q", fn)
	}
	//nolint:gosec
	file, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(file.Close)
	cloud, err := f.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding lidar file %q", fn)
	}
	logger.Debugw("decoded lidar capture", "file", fn, "points", cloud.Size())
	return cloud, nil
}

// Decode reads a dense lidar payload. The byte length must be an exact
// multiple of the 20-byte record; anything else means the stream is cut short
// or is not this format, and is an error rather than a silent truncation.
func (f LidarFormat) Decode(in io.Reader) (*Cloud, error) {
	buf, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	if len(buf)%lidarRecordBytes != 0 {
		return nil, errors.Wrapf(ErrTruncatedPayload,
			"payload length %d is not a multiple of the %d byte lidar record", len(buf), lidarRecordBytes)
	}
	n := len(buf) / lidarRecordBytes
	if n == 0 {
		return NewEmptyCloud(lidarDims), nil
	}
	points := mat.NewDense(lidarDims, n, nil)
	for i := 0; i < n; i++ {
		record := buf[i*lidarRecordBytes:]
		for row := 0; row < lidarDims; row++ {
			bits := binary.LittleEndian.Uint32(record[row*4:])
			points.Set(row, i, float64(math.Float32frombits(bits)))
		}
	}
	return NewCloud(lidarDims, points)
}

// WriteDense writes the cloud in the dense lidar layout. The ring index,
// dropped on decode, is written as zero, so decode-encode-decode is identity.
func WriteDense(out io.Writer, cloud *Cloud) error {
	if cloud.Dims() != lidarDims {
		return newShapeMismatchError(lidarDims, cloud.Dims())
	}
	record := make([]byte, lidarRecordBytes)
	for col := 0; col < cloud.Size(); col++ {
		for row := 0; row < lidarDims; row++ {
			bits := math.Float32bits(float32(cloud.Matrix().At(row, col)))
			binary.LittleEndian.PutUint32(record[row*4:], bits)
		}
		binary.LittleEndian.PutUint32(record[16:], 0)
		if _, err := out.Write(record); err != nil {
			return err
		}
	}
	return nil
}
