package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"laptopprice/pkg/artifact"
	"laptopprice/pkg/dataprep"
)

var (
	// ErrNoModel is returned when nothing has been published yet.
	ErrNoModel = errors.New("predict: no model has been published")
	// ErrInvalidInput marks errors caused by the request rather than the model.
	// Predict wraps it around fields that are missing or out of range.
	ErrInvalidInput = errors.New("predict: invalid input")
)

// Input is one laptop as entered in the form. Field names match the
// engineered feature columns the model was trained on. Numeric fields are
// pointers so an absent field is told apart from an explicit zero.
type Input struct {
	Company     string   `form:"Company" json:"Company" binding:"required"`
	TypeName    string   `form:"TypeName" json:"TypeName" binding:"required"`
	Ram         *float64 `form:"Ram" json:"Ram" binding:"required"`
	Weight      *float64 `form:"Weight" json:"Weight" binding:"required"`
	Touchscreen *int     `form:"Touchscreen" json:"Touchscreen" binding:"required"`
	IPS         *int     `form:"IPS" json:"IPS" binding:"required"`
	CPUName     string   `form:"cpu_name" json:"cpu_name" binding:"required"`
	SSD         *float64 `form:"SSD" json:"SSD" binding:"required"`
	HDD         *float64 `form:"HDD" json:"HDD" binding:"required"`
	GPUBrand    string   `form:"gpu_brand" json:"gpu_brand" binding:"required"`
	OS          string   `form:"os" json:"os" binding:"required"`
}

// Upper bounds for numeric inputs. Anything larger is not a laptop.
const (
	MaxRamGB     = 1024
	MaxWeightKg  = 50
	MaxStorageGB = 100_000
)

// Float and Int build pointer fields for Input literals.
func Float(v float64) *float64 { return &v }
func Int(v int) *int { return &v }

// Record renders the input as a feature record for the preprocessor.
// Absent fields render as missing cells.
func (in Input) Record() map[string]string {
	num := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	flag := func(v *int) string {
		if v == nil {
			return ""
		}
		return strconv.Itoa(*v)
	}
	return map[string]string{
		"Company":                in.Company,
		"TypeName":               in.TypeName,
		dataprep.ColRam:          num(in.Ram),
		dataprep.ColWeight:       num(in.Weight),
		dataprep.FeatTouchscreen: flag(in.Touchscreen),
		dataprep.FeatIPS:         flag(in.IPS),
		dataprep.FeatCPUName:     in.CPUName,
		dataprep.FeatSSD:         num(in.SSD),
		dataprep.FeatHDD:         num(in.HDD),
		dataprep.FeatGPUBrand:    in.GPUBrand,
		dataprep.FeatOS:          in.OS,
	}
}

// Validate reports every missing or out-of-range field at once.
func (in Input) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"Company": in.Company, "TypeName": in.TypeName, "cpu_name": in.CPUName,
		"gpu_brand": in.GPUBrand, "os": in.OS,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	checkNum := func(name string, v *float64, limit float64) {
		switch {
		case v == nil:
			errs = append(errs, fmt.Errorf("%s is required", name))
		case math.IsNaN(*v) || math.IsInf(*v, 0):
			errs = append(errs, fmt.Errorf("%s must be a finite number", name))
		case *v < 0 || *v > limit:
			errs = append(errs, fmt.Errorf("%s must be between 0 and %v", name, limit))
		}
	}
	checkNum("Ram", in.Ram, MaxRamGB)
	checkNum("Weight", in.Weight, MaxWeightKg)
	checkNum("SSD", in.SSD, MaxStorageGB)
	checkNum("HDD", in.HDD, MaxStorageGB)
	checkFlag := func(name string, v *int) {
		switch {
		case v == nil:
			errs = append(errs, fmt.Errorf("%s is required", name))
		case *v != 0 && *v != 1:
			errs = append(errs, fmt.Errorf("%s must be 0 or 1", name))
		}
	}
	checkFlag("Touchscreen", in.Touchscreen)
	checkFlag("IPS", in.IPS)
	slices.SortFunc(errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
	return errors.Join(errs...)
}

// Prediction is one scored input.
type Prediction struct {
	Price   float64 `json:"price"`
	Version string  `json:"version"`
}

// Text renders the price the way the form shows it.
func (p Prediction) Text() string {
	return "Predicted Price: ₹" + FormatPrice(p.Price)
}

// FormatPrice truncates to whole units and groups thousands with commas.
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	n := int64(v)
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Predictor serves predictions from the production bundle. The pointer is
// read on every call; the bundle is reloaded only when its version changes.
type Predictor struct {
	registry *artifact.Registry

	mu     sync.RWMutex
	bundle *artifact.Bundle
}

func New(registry *artifact.Registry) *Predictor {
	return &Predictor{registry: registry}
}

// Version returns the production version without loading the bundle.
func (p *Predictor) Version(ctx context.Context) (string, error) {
	ptr, err := p.registry.Current(ctx)
	if errors.Is(err, artifact.ErrNotFound) {
		return "", ErrNoModel
	}
	if err != nil {
		return "", err
	}
	return ptr.Version, nil
}

// Current returns the production bundle, loading it if the pointer moved.
func (p *Predictor) Current(ctx context.Context) (*artifact.Bundle, error) {
	ptr, err := p.registry.Current(ctx)
	if errors.Is(err, artifact.ErrNotFound) {
		return nil, ErrNoModel
	}
	if err != nil {
		return nil, fmt.Errorf("predict: read pointer: %w", err)
	}

	p.mu.RLock()
	b := p.bundle
	p.mu.RUnlock()
	if b != nil && b.Version == ptr.Version {
		return b, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bundle != nil && p.bundle.Version == ptr.Version {
		return p.bundle, nil
	}
	b, err = p.registry.Load(ctx, ptr)
	if err != nil {
		return nil, fmt.Errorf("predict: load %s: %w", ptr.Version, err)
	}
	p.bundle = b
	return b, nil
}

// Predict scores one input against the production bundle.
func (p *Predictor) Predict(ctx context.Context, in Input) (Prediction, error) {
	if err := in.Validate(); err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	b, err := p.Current(ctx)
	if err != nil {
		return Prediction{}, err
	}
	price, err := b.Predict(in.Record())
	if errors.Is(err, dataprep.ErrUnknownCategory) {
		return Prediction{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Prediction{}, fmt.Errorf("predict: model %s produced a non-finite price", b.Version)
	}
	return Prediction{Price: price, Version: b.Version}, nil
}
