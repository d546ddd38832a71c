package ndfd

import (
	"fmt"
	"log"
)

// CellValue is one reduced (row, column) pair within an accumulation window.
type CellValue struct {
	YIndex int
	XIndex int
	Value  float64
}

// aggregateWindow reduces one accumulation window's subperiod planes to a
// single value per grid cell: a running total for QPF, the subperiod peak for
// PoP12. Every cell present in the input planes appears exactly once in the
// output, in row-major order.
func aggregateWindow(g Grid, w Window, v Variable) ([]CellValue, error) {
	if len(w.Indices) == 0 {
		return nil, fmt.Errorf("ndfd: empty %s hr window", w.Label)
	}

	first, err := g.Plane(w.Indices[0])
	if err != nil {
		return nil, fmt.Errorf("ndfd: subperiod %d: %w", w.Indices[0], err)
	}
	totals := make([][]float64, len(first))
	for y := range first {
		totals[y] = append([]float64(nil), first[y]...)
	}

	for _, idx := range w.Indices[1:] {
		plane, err := g.Plane(idx)
		if err != nil {
			return nil, fmt.Errorf("ndfd: subperiod %d: %w", idx, err)
		}
		if len(plane) != len(totals) {
			return nil, fmt.Errorf("ndfd: subperiod %d has %d rows, want %d", idx, len(plane), len(totals))
		}
		for y := range plane {
			if len(plane[y]) != len(totals[y]) {
				return nil, fmt.Errorf("ndfd: subperiod %d row %d has %d columns, want %d", idx, y, len(plane[y]), len(totals[y]))
			}
			for x := range plane[y] {
				totals[y][x] = v.Reduce(totals[y][x], plane[y][x])
			}
		}
	}

	var cells []CellValue
	for y := range totals {
		for x := range totals[y] {
			cells = append(cells, CellValue{YIndex: y, XIndex: x, Value: totals[y][x]})
		}
	}

	log.Printf("ndfd: %s %d hr period aggregated", v, int(w.Hours[len(w.Hours)-1]))
	return cells, nil
}
