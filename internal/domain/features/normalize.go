package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Raw is a farmer's raw attribute bag keyed by feature name. Values may be
// numbers, numeric strings, booleans or (for crop_type) a crop name.
type Raw map[string]any

// Known returns how many canonical feature keys are present in r, whether or
// not their values parse.
func (r Raw) Known() int {
	n := 0
	for _, name := range Order {
		if _, ok := r[string(name)]; ok {
			n++
		}
	}
	return n
}

// Number reads key as a float. Unparseable, nil and non-finite values report
// false.
func (r Raw) Number(key Name) (float64, bool) {
	v, ok := r[string(key)]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Text reads key as a trimmed, lower-cased string.
func (r Raw) Text(key Name) (string, bool) {
	v, ok := r[string(key)]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s != ""
}

// Vector is a normalized feature set in canonical order.
type Vector struct {
	// Values holds the normalized values, each in [0, 1].
	Values [Count]float64
	// Effective holds the raw value each feature was scored from after
	// defaulting, before clamping. For crop_type it is the encoded value.
	Effective [Count]float64
	// Missing marks features that were absent or unparseable.
	Missing [Count]bool
	// Crop is the crop name used for crop_type; empty when missing.
	Crop string
}

// Slice copies the normalized values into a new slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Count)
	copy(out, v.Values[:])
	return out
}

// Normalize maps a raw attribute bag onto a Vector. It never fails: missing
// or unparseable attributes take the midpoint of their domain (the FPO flag
// defaults to 0) and out-of-domain values are clamped.
func Normalize(r Raw) Vector {
	var v Vector
	for i, spec := range specs {
		switch spec.Kind {
		case KindCategorical:
			v.Values[i], v.Effective[i], v.Missing[i] = normalizeCrop(r, &v.Crop)
		case KindBinary:
			x, ok := r.Number(spec.Name)
			v.Missing[i] = !ok
			if ok && x != 0 {
				v.Values[i], v.Effective[i] = 1, 1
			}
		default:
			x, ok := r.Number(spec.Name)
			if !ok {
				x = spec.Domain.Mid()
			} else if spec.Name == LastYearYieldEst {
				x = perHectare(r, x)
			}
			v.Missing[i] = !ok
			v.Effective[i] = x
			v.Values[i] = scale(spec, x)
			if math.IsNaN(v.Values[i]) || math.IsInf(v.Values[i], 0) {
				v.Effective[i] = spec.Domain.Mid()
				v.Values[i] = scale(spec, v.Effective[i])
			}
		}
	}
	return v
}

func normalizeCrop(r Raw, crop *string) (value, effective float64, missing bool) {
	name, ok := r.Text(CropType)
	if !ok {
		return DefaultCropEncoding, DefaultCropEncoding, true
	}
	*crop = name
	enc, known := CropEncoding[name]
	if !known {
		enc = DefaultCropEncoding
	}
	return enc, enc, false
}

// perHectare converts a total yield estimate into tonnes per hectare using
// the land area the vector will be scored with.
func perHectare(r Raw, yield float64) float64 {
	land, ok := r.Number(LandArea)
	if !ok {
		land = specs[0].Domain.Mid()
	}
	if land <= 0 {
		return 0
	}
	return yield / land
}

func scale(spec Spec, x float64) float64 {
	d := spec.Domain
	switch spec.Kind {
	case KindLinear:
		return linear(x, d)
	case KindInverseLinear:
		return 1 - linear(x, d)
	case KindAbsDeviation:
		return 1 - math.Min(math.Abs(x), d.Hi)/d.Hi
	default:
		return clamp01(x)
	}
}

func linear(x float64, d Domain) float64 {
	if d.Hi == d.Lo {
		return 0.5
	}
	x = math.Max(d.Lo, math.Min(d.Hi, x))
	return (x - d.Lo) / (d.Hi - d.Lo)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
