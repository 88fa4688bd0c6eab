package fluid

import (
	"errors"
	"fmt"
	"math"
)

// ErrNumericalProblem reports a failed property evaluation, typically a
// saturation pressure without a root in the tabulated range
var ErrNumericalProblem = errors.New("numerical problem")

// PVT evaluates black-oil properties per PVT region
type PVT interface {
	NumRegions() int

	// FVF is the formation volume factor (reservoir volume per surface volume)
	FVF(ph Phase, region int, p, rs, rv float64) (float64, error)

	SaturatedRs(region int, p float64) float64
	SaturatedRv(region int, p float64) float64

	BubblePoint(region int, rs float64) (float64, error)
	DewPoint(region int, rv float64) (float64, error)
}

// RegionPVT is a compact analytic live oil / wet gas description
type RegionPVT struct {
	RefPressure float64 `yaml:"ref_pressure"`

	WaterFVF    float64 `yaml:"water_fvf"`
	WaterCompr  float64 `yaml:"water_compressibility"`
	OilFVF      float64 `yaml:"oil_fvf"` // Dead oil at reference pressure
	OilCompr    float64 `yaml:"oil_compressibility"`
	OilSwelling float64 `yaml:"oil_swelling"` // Relative FVF increase per unit Rs
	GasFVF      float64 `yaml:"gas_fvf"`      // At reference pressure, scales as 1/p

	// Saturated solution ratios grow linearly with pressure up to a cap
	RsSlope float64 `yaml:"rs_slope"`
	RsMax   float64 `yaml:"rs_max"`
	RvSlope float64 `yaml:"rv_slope"`
	RvMax   float64 `yaml:"rv_max"`

	// Pressure range searched for saturation pressures
	PMin float64 `yaml:"p_min"`
	PMax float64 `yaml:"p_max"`
}

// LiveOilPVT implements PVT over a set of analytic regions
type LiveOilPVT struct {
	Regions []RegionPVT
}

func (l *LiveOilPVT) NumRegions() int { return len(l.Regions) }

func (l *LiveOilPVT) region(r int) (*RegionPVT, error) {
	if r < 0 || r >= len(l.Regions) {
		return nil, fmt.Errorf("pvt region %d outside [0,%d)", r, len(l.Regions))
	}
	return &l.Regions[r], nil
}

// Validate checks that every region describes positive volume factors and
// a usable pressure range
func (l *LiveOilPVT) Validate() error {
	if len(l.Regions) == 0 {
		return fmt.Errorf("no pvt regions")
	}
	for i, r := range l.Regions {
		if r.WaterFVF <= 0 || r.OilFVF <= 0 || r.GasFVF <= 0 {
			return fmt.Errorf("pvt region %d: formation volume factors must be positive", i)
		}
		if r.RefPressure <= 0 {
			return fmt.Errorf("pvt region %d: reference pressure must be positive", i)
		}
		if !(r.PMin < r.PMax) || r.PMin < 0 {
			return fmt.Errorf("pvt region %d: invalid pressure range [%g,%g]", i, r.PMin, r.PMax)
		}
	}
	return nil
}

// compressed returns ref / (1 + x + x^2/2) with x = c*(p - pref)
func compressed(ref, c, p, pref float64) float64 {
	x := c * (p - pref)
	return ref / (1 + x + 0.5*x*x)
}

func (l *LiveOilPVT) FVF(ph Phase, region int, p, rs, rv float64) (float64, error) {
	r, err := l.region(region)
	if err != nil {
		return 0, err
	}
	var b float64
	switch ph {
	case Aqua:
		b = compressed(r.WaterFVF, r.WaterCompr, p, r.RefPressure)
	case Liquid:
		b = compressed(r.OilFVF, r.OilCompr, p, r.RefPressure) * (1 + r.OilSwelling*rs)
	case Vapour:
		if p <= 0 {
			return 0, fmt.Errorf("gas fvf at pressure %g: %w", p, ErrNumericalProblem)
		}
		b = r.GasFVF * r.RefPressure / p
	default:
		return 0, fmt.Errorf("unknown phase %d", ph)
	}
	if !(b > 0) || math.IsInf(b, 0) {
		return 0, fmt.Errorf("%s fvf %g at pressure %g: %w", ph, b, p, ErrNumericalProblem)
	}
	return b, nil
}

func saturated(slope, limit, p float64) float64 {
	return math.Min(slope*math.Max(p, 0), limit)
}

func (l *LiveOilPVT) SaturatedRs(region int, p float64) float64 {
	r, err := l.region(region)
	if err != nil {
		return 0
	}
	return saturated(r.RsSlope, r.RsMax, p)
}

func (l *LiveOilPVT) SaturatedRv(region int, p float64) float64 {
	r, err := l.region(region)
	if err != nil {
		return 0
	}
	return saturated(r.RvSlope, r.RvMax, p)
}

// BubblePoint finds the pressure at which rs is the saturated gas-oil ratio
func (l *LiveOilPVT) BubblePoint(region int, rs float64) (float64, error) {
	r, err := l.region(region)
	if err != nil {
		return 0, err
	}
	p, err := bisect(func(p float64) float64 { return saturated(r.RsSlope, r.RsMax, p) - rs }, r.PMin, r.PMax)
	if err != nil {
		return 0, fmt.Errorf("bubble point for rs=%g: %w", rs, err)
	}
	return p, nil
}

// DewPoint finds the pressure at which rv is the saturated oil-gas ratio
func (l *LiveOilPVT) DewPoint(region int, rv float64) (float64, error) {
	r, err := l.region(region)
	if err != nil {
		return 0, err
	}
	p, err := bisect(func(p float64) float64 { return saturated(r.RvSlope, r.RvMax, p) - rv }, r.PMin, r.PMax)
	if err != nil {
		return 0, fmt.Errorf("dew point for rv=%g: %w", rv, err)
	}
	return p, nil
}

const (
	bisectMaxIter = 200
	bisectTol     = 1e-10
)

// bisect finds a root of a nondecreasing f on [lo, hi]
func bisect(f func(float64) float64, lo, hi float64) (float64, error) {
	flo, fhi := f(lo), f(hi)
	if flo > 0 || fhi < 0 {
		return 0, fmt.Errorf("no root in [%g,%g]: %w", lo, hi, ErrNumericalProblem)
	}
	if flo == 0 {
		return lo, nil
	}
	for i := 0; i < bisectMaxIter; i++ {
		mid := 0.5 * (lo + hi)
		if hi-lo <= bisectTol*math.Max(1, math.Abs(mid)) {
			return mid, nil
		}
		if f(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), nil
}
