package board

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning collects every heuristic constant of the string engine. The values
// are UX knobs, not derived quantities, so they load from caseboard.yaml
// rather than living as hard-coded literals.
type Tuning struct {
	// SampleSegments is the fixed polyline resolution: every fitted curve is
	// sampled into SampleSegments+1 points.
	SampleSegments int `yaml:"sample_segments"`

	// MinPointSeparation is the closest two control points on one string may
	// sit; the later-inserted one of a closer pair is culled on drag release.
	MinPointSeparation float64 `yaml:"min_point_separation"`

	// EndpointClamp is the minimum distance a repaired control point keeps
	// from either anchor.
	EndpointClamp float64 `yaml:"endpoint_clamp"`

	// BaselineOffsetFrac and BaselineOffsetFloor size the perpendicular
	// displacement used when relocating a control point off a
	// self-intersecting curve: max(floor, frac × baseline length).
	BaselineOffsetFrac  float64 `yaml:"baseline_offset_frac"`
	BaselineOffsetFloor float64 `yaml:"baseline_offset_floor"`

	// SharpAngleDeg is the cusp threshold: a control point whose prev/next
	// vectors meet at less than this angle gets relocated.
	SharpAngleDeg float64 `yaml:"sharp_angle_deg"`

	// SharpAngleOffset is how far the relocated point is pushed off the
	// prev-next chord, away from the cusp side.
	SharpAngleOffset float64 `yaml:"sharp_angle_offset"`

	// AnchorMoveThreshold and AnchorReshapeThreshold gate anchor
	// re-selection by candidate distance: the looser value applies when the
	// entity moved, the stricter one while the user is reshaping the curve.
	AnchorMoveThreshold    float64 `yaml:"anchor_move_threshold"`
	AnchorReshapeThreshold float64 `yaml:"anchor_reshape_threshold"`

	// AnchorQualityMargin is how much better (0-1 alignment score) a
	// candidate anchor must be before it replaces the current one. Together
	// with the distance thresholds this stops anchors flapping between two
	// near-equal candidates.
	AnchorQualityMargin float64 `yaml:"anchor_quality_margin"`

	// AnchorProbeDistance is how far from the entity centre, along the
	// curve's end tangent, the ideal attachment point is probed.
	AnchorProbeDistance float64 `yaml:"anchor_probe_distance"`

	// EndTangentSamples is how many polyline samples near each end feed the
	// tangent estimate.
	EndTangentSamples int `yaml:"end_tangent_samples"`

	// MaxRepairPasses bounds the detect/repair loop for self-intersections.
	MaxRepairPasses int `yaml:"max_repair_passes"`

	// RefineTolerance is the factor by which a projection-refined insertion
	// position may exceed the raw nearest-sample distance and still win.
	RefineTolerance float64 `yaml:"refine_tolerance"`

	// MovedEpsilon is the displacement beyond which a control point counts
	// as deliberately moved (and survives idle cleanup).
	MovedEpsilon float64 `yaml:"moved_epsilon"`

	// StrokeWidth and HitMargin define the rendered string width and the
	// extra slack allowed when hit-testing it.
	StrokeWidth float64 `yaml:"stroke_width"`
	HitMargin   float64 `yaml:"hit_margin"`

	// IdleTimeout is how long a connection may sit uninteracted-with before
	// its never-moved control points are discarded.
	IdleTimeout Duration `yaml:"idle_timeout"`
}

// DefaultTuning returns the carried-over heuristic defaults.
func DefaultTuning() *Tuning {
	return &Tuning{
		SampleSegments:         50,
		MinPointSeparation:     40,
		EndpointClamp:          35,
		BaselineOffsetFrac:     0.08,
		BaselineOffsetFloor:    40,
		SharpAngleDeg:          45,
		SharpAngleOffset:       60,
		AnchorMoveThreshold:    15,
		AnchorReshapeThreshold: 25,
		AnchorQualityMargin:    0.2,
		AnchorProbeDistance:    120,
		EndTangentSamples:      5,
		MaxRepairPasses:        4,
		RefineTolerance:        1.2,
		MovedEpsilon:           2,
		StrokeWidth:            3,
		HitMargin:              6,
		IdleTimeout:            Duration(3 * time.Second),
	}
}

// Validate rejects values that would break the geometry pipeline.
func (t *Tuning) Validate() error {
	if t.SampleSegments < 2 {
		return fmt.Errorf("sample_segments must be >= 2, got %d", t.SampleSegments)
	}
	if t.MaxRepairPasses < 1 {
		return fmt.Errorf("max_repair_passes must be >= 1, got %d", t.MaxRepairPasses)
	}
	if t.EndTangentSamples < 2 {
		return fmt.Errorf("end_tangent_samples must be >= 2, got %d", t.EndTangentSamples)
	}
	if t.MinPointSeparation <= 0 {
		return fmt.Errorf("min_point_separation must be positive, got %g", t.MinPointSeparation)
	}
	if t.RefineTolerance < 1 {
		return fmt.Errorf("refine_tolerance must be >= 1, got %g", t.RefineTolerance)
	}
	if t.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %s", time.Duration(t.IdleTimeout))
	}
	return nil
}

// IdleTimeoutTicks converts the idle timeout to whole ticks at the given
// tick rate (minimum one tick).
func (t *Tuning) IdleTimeoutTicks(tps int) int {
	ticks := int(time.Duration(t.IdleTimeout).Seconds() * float64(tps))
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// LoadTuning reads a Tuning from a YAML file. Fields missing from the file
// keep their defaults. A missing file is not an error: defaults are
// returned unchanged.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// SaveTuning writes the Tuning as YAML.
func SaveTuning(path string, t *Tuning) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tuning: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Duration wraps time.Duration for YAML marshaling as "3s"-style strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
