package pointcloud

import (
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const radarDims = 18

// Canonical radar field layout. The validity filters key off dyn_prop
// (row 3), ambig_state (row 11) and invalid_state (4th row from the end).
var (
	radarFieldNames = [radarDims]string{
		"x", "y", "z", "dyn_prop", "id", "rcs", "vx", "vy", "vx_comp", "vy_comp",
		"is_quality_valid", "ambig_state", "x_rms", "y_rms", "invalid_state", "pdh0", "vx_rms", "vy_rms",
	}
	radarFieldSizes = [radarDims]int{4, 4, 4, 1, 2, 4, 4, 4, 4, 4, 1, 1, 1, 1, 1, 1, 1, 1}
	radarFieldTypes = [radarDims]string{
		"F", "F", "F", "I", "I", "F", "F", "F", "F", "F", "I", "I", "I", "I", "I", "I", "I", "I",
	}
)

// RadarFilters are the allow sets the structured decoder keeps points by.
// A nil set falls back to the format default for that filter.
//
// invalid_state 0 is the only fully valid cluster state. dyn_prop 0 through 6
// covers every dynamic property except "stopped"; use {0, 2, 6} to keep
// moving objects only. ambig_state 3 keeps clusters whose radial velocity
// ambiguity was resolved.
type RadarFilters struct {
	InvalidStates []int
	DynPropStates []int
	AmbigStates   []int
}

// DefaultRadarFilters returns the format's default allow sets. The returned
// value is fresh on every call; decoders never share or mutate global filter
// state.
func DefaultRadarFilters() RadarFilters {
	return RadarFilters{
		InvalidStates: []int{0},
		DynPropStates: []int{0, 1, 2, 3, 4, 5, 6},
		AmbigStates:   []int{3},
	}
}

// RadarFormat decodes the structured binary radar capture format. Decoded
// clouds have 18 rows. The zero value decodes with the default filters.
type RadarFormat struct {
	Filters *RadarFilters
}

// Dims implements Format.
func (f *RadarFormat) Dims() int {
	return radarDims
}

// DecodeFile implements Format. The file must carry the .pcd extension and
// declare exactly the radar field count.
func (f *RadarFormat) DecodeFile(fn string, logger golog.Logger) (*Cloud, error) {
	if filepath.Ext(fn) != ".pcd" {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "radar decode wants a .pcd file, got %q", fn)
	}
	//nolint:gosec
	file, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(file.Close)
	cloud, err := ReadPCD(file, f.Filters)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding radar file %q", fn)
	}
	if cloud.Dims() != radarDims {
		return nil, newShapeMismatchError(radarDims, cloud.Dims())
	}
	logger.Debugw("decoded radar capture", "file", fn, "points", cloud.Size())
	return cloud, nil
}
