package dataprep

import (
	"errors"
	"fmt"

	"laptopprice/pkg/data"
	"laptopprice/pkg/stats"
)

// FeatureSpec names the engineered columns a Preprocessor consumes.
type FeatureSpec struct {
	Scaled      []string // numeric, imputed then standardised
	Categorical []string // imputed then one-hot encoded
	Passthrough []string // numeric, imputed only
	Unknown     string   // UnknownIgnore or UnknownError
}

// Preprocessor is the fitted transformation object. Its output layout is
// [scaled numeric | one-hot blocks | passthrough], one block per column in
// spec order. It holds no randomness: the same input always maps to the same
// vector.
type Preprocessor struct {
	Spec        FeatureSpec
	ScaledImp   []NumericImputer
	PassImp     []NumericImputer
	CatImp      []CategoricalImputer
	Encoders    []OneHotEncoder
	Scaler      *stats.StandardScaler
	OutputNames []string
}

func NewPreprocessor(spec FeatureSpec) *Preprocessor {
	if spec.Unknown == "" {
		spec.Unknown = UnknownIgnore
	}
	return &Preprocessor{Spec: spec}
}

// Fit learns imputers, vocabularies and scaling statistics from f.
func (p *Preprocessor) Fit(f *data.Frame) error {
	if f.Len() == 0 {
		return errors.New("dataprep: cannot fit on empty frame")
	}
	scaled, err := numericColumns(f, p.Spec.Scaled)
	if err != nil {
		return err
	}
	pass, err := numericColumns(f, p.Spec.Passthrough)
	if err != nil {
		return err
	}

	p.ScaledImp = fitNumeric(scaled)
	p.PassImp = fitNumeric(pass)

	p.CatImp = make([]CategoricalImputer, len(p.Spec.Categorical))
	p.Encoders = make([]OneHotEncoder, len(p.Spec.Categorical))
	for k, name := range p.Spec.Categorical {
		col, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("dataprep: missing categorical column %q", name)
		}
		p.CatImp[k].Fit(col)
		for i := range col {
			col[i] = p.CatImp[k].Fill(col[i])
		}
		p.Encoders[k] = OneHotEncoder{Unknown: p.Spec.Unknown}
		p.Encoders[k].Fit(col)
	}

	rows := make([][]float64, f.Len())
	for i := range rows {
		rows[i] = make([]float64, len(scaled))
		for j := range scaled {
			rows[i][j] = p.ScaledImp[j].Fill(scaled[j][i])
		}
	}
	p.Scaler = stats.NewStandardScaler()
	if len(scaled) > 0 {
		if err := p.Scaler.Fit(rows); err != nil {
			return err
		}
	} else {
		p.Scaler.Fitted = true
	}

	p.OutputNames = append([]string{}, p.Spec.Scaled...)
	for k, name := range p.Spec.Categorical {
		for _, c := range p.Encoders[k].Categories {
			p.OutputNames = append(p.OutputNames, name+"_"+c)
		}
	}
	p.OutputNames = append(p.OutputNames, p.Spec.Passthrough...)
	return nil
}

// Width is the length of a transformed vector.
func (p *Preprocessor) Width() int { return len(p.OutputNames) }

// TransformRecord maps one feature record to its model vector.
func (p *Preprocessor) TransformRecord(rec map[string]string) ([]float64, error) {
	if p.Scaler == nil || !p.Scaler.Fitted {
		return nil, stats.ErrNotFitted
	}
	out := make([]float64, p.Width())

	num := make([]float64, len(p.Spec.Scaled))
	for j, name := range p.Spec.Scaled {
		v, err := recordNumber(rec, name)
		if err != nil {
			return nil, err
		}
		num[j] = p.ScaledImp[j].Fill(v)
	}
	if len(num) > 0 {
		if err := p.Scaler.TransformRow(out[:len(num)], num); err != nil {
			return nil, err
		}
	}

	at := len(num)
	for k, name := range p.Spec.Categorical {
		v := p.CatImp[k].Fill(rec[name])
		w := p.Encoders[k].Width()
		if err := p.Encoders[k].Encode(out[at:at+w], v); err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		at += w
	}

	for j, name := range p.Spec.Passthrough {
		v, err := recordNumber(rec, name)
		if err != nil {
			return nil, err
		}
		out[at+j] = p.PassImp[j].Fill(v)
	}
	return out, nil
}

// Transform maps every row of f.
func (p *Preprocessor) Transform(f *data.Frame) ([][]float64, error) {
	X := make([][]float64, f.Len())
	for i := range X {
		row, err := p.TransformRecord(f.Record(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		X[i] = row
	}
	return X, nil
}

// FitTransform fits on f and returns its transformed rows.
func (p *Preprocessor) FitTransform(f *data.Frame) ([][]float64, error) {
	if err := p.Fit(f); err != nil {
		return nil, err
	}
	return p.Transform(f)
}

func recordNumber(rec map[string]string, name string) (float64, error) {
	v, err := ParseNumeric(rec[name])
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

func numericColumns(f *data.Frame, names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for k, name := range names {
		raw, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("dataprep: missing numeric column %q", name)
		}
		cols[k] = make([]float64, len(raw))
		for i, s := range raw {
			v, err := ParseNumeric(s)
			if err != nil {
				return nil, fmt.Errorf("dataprep: row %d column %s: %w", i, name, err)
			}
			cols[k][i] = v
		}
	}
	return cols, nil
}

func fitNumeric(cols [][]float64) []NumericImputer {
	imps := make([]NumericImputer, len(cols))
	for k, col := range cols {
		imps[k] = NumericImputer{Strategy: StrategyMedian}
		imps[k].Fit(col)
	}
	return imps
}
