package ndfd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/shellcast/shellcast/internal/httputil"
)

// OpenNetCDF fetches the resource body into a temporary file and opens it
// with the native NetCDF reader. The file is removed when the dataset is
// closed.
func OpenNetCDF(ctx context.Context, url string) (Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httputil.NewClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "ndfd-*.bin")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	group, err := netcdf.Open(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("open netcdf %s: %w", url, err)
	}
	return &netcdfDataset{group: group, path: tmp.Name()}, nil
}

type netcdfDataset struct {
	group api.Group
	path  string
}

func (d *netcdfDataset) Children() []string {
	return d.group.ListVariables()
}

func (d *netcdfDataset) Grid(name string) (Grid, error) {
	v, err := d.group.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	return &netcdfGrid{ds: d, v: v}, nil
}

func (d *netcdfDataset) Coordinate(axis string) ([]float64, error) {
	v, err := d.group.GetVariable(axis)
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", axis, err)
	}
	vals, ok := toFloat1D(v.Values)
	if !ok {
		return nil, fmt.Errorf("coordinate %s: unexpected type %T", axis, v.Values)
	}
	return vals, nil
}

func (d *netcdfDataset) Close() error {
	d.group.Close()
	return os.Remove(d.path)
}

type netcdfGrid struct {
	ds *netcdfDataset
	v  *api.Variable
}

func (g *netcdfGrid) Dimensions() []string {
	return g.v.Dimensions
}

func (g *netcdfGrid) Subperiods() ([]float64, error) {
	if len(g.v.Dimensions) == 0 {
		return nil, fmt.Errorf("variable has no dimensions")
	}
	timeDim := g.v.Dimensions[0]
	tv, err := g.ds.group.GetVariable(timeDim)
	if err != nil {
		return nil, fmt.Errorf("time dimension %s: %w", timeDim, err)
	}
	vals, ok := toFloat1D(tv.Values)
	if !ok {
		return nil, fmt.Errorf("time dimension %s: unexpected type %T", timeDim, tv.Values)
	}
	return vals, nil
}

func (g *netcdfGrid) Plane(index int) ([][]float64, error) {
	switch vals := g.v.Values.(type) {
	case [][][]float64:
		if index < 0 || index >= len(vals) {
			return nil, fmt.Errorf("subperiod index %d out of range [0,%d)", index, len(vals))
		}
		return vals[index], nil
	case [][][]float32:
		if index < 0 || index >= len(vals) {
			return nil, fmt.Errorf("subperiod index %d out of range [0,%d)", index, len(vals))
		}
		plane := make([][]float64, len(vals[index]))
		for y, row := range vals[index] {
			plane[y] = make([]float64, len(row))
			for x, val := range row {
				plane[y][x] = float64(val)
			}
		}
		return plane, nil
	default:
		return nil, fmt.Errorf("unexpected grid type %T", g.v.Values)
	}
}

func toFloat1D(values interface{}) ([]float64, bool) {
	switch vals := values.(type) {
	case []float64:
		return vals, true
	case []float32:
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = float64(v)
		}
		return out, true
	case []int32:
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = float64(v)
		}
		return out, true
	default:
		return nil, false
	}
}
