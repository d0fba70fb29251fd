package forecast

// PointForecast holds a single value per horizon step. Every quantile degenerates to the point value.
type PointForecast struct {
	header
	values []float64
}

func NewPointForecast(meta Meta, values []float64) (*PointForecast, error) {
	if len(values) == 0 {
		return nil, ErrEmptyHorizon
	}
	return &PointForecast{
		header: header{meta: meta},
		values: copyValues(values),
	}, nil
}

func (f *PointForecast) Horizon() int {
	return len(f.values)
}

func (f *PointForecast) Quantile(q float64) ([]float64, error) {
	if err := checkLevel(q); err != nil {
		return nil, err
	}
	return copyValues(f.values), nil
}

func (f *PointForecast) Mean() ([]float64, error) {
	return copyValues(f.values), nil
}

// Values returns a copy of the point estimates
func (f *PointForecast) Values() []float64 {
	return copyValues(f.values)
}
