package ndfd

// Dataset is an opaque handle over one published NDFD forecast run. A handle
// is created per issuance-time query and discarded after a single tidy pass;
// nothing is cached or pooled between runs.
type Dataset interface {
	// Children lists the dataset's declared field names, forecast variables
	// and coordinate axes alike.
	Children() []string
	// Grid opens the named forecast variable.
	Grid(name string) (Grid, error)
	// Coordinate returns the named 1-D coordinate axis ("x" or "y").
	Coordinate(axis string) ([]float64, error)
	Close() error
}

// Grid is one variable's array within a forecast run, laid out as
// subperiod × row × column when usable. Runs published in the forecast-cycle
// layout carry a fourth leading "reftime" dimension instead.
type Grid interface {
	// Dimensions returns the declared dimension names in order.
	Dimensions() []string
	// Subperiods returns the hour offsets along the leading time dimension.
	Subperiods() ([]float64, error)
	// Plane returns the 2-D row × column slice at one subperiod index.
	Plane(index int) ([][]float64, error)
}
