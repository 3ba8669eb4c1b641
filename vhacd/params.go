package vhacd

import (
	"fmt"

	"hullbridge/native"

	"github.com/go-playground/validator/v10"
)

// Decomposition modes accepted in Parameters.Mode.
const (
	ModeVoxel       = "voxel"
	ModeTetrahedron = "tetrahedron"
)

// Parameters configures a decomposition. Numeric fields left at zero where
// zero is outside the engine's range take the engine default.
type Parameters struct {
	Resolution              uint32  `yaml:"resolution" validate:"omitempty,min=10000,max=64000000"`
	Depth                   int32   `yaml:"depth" validate:"omitempty,min=1,max=32"`
	Concavity               float64 `yaml:"concavity" validate:"min=0,max=1"`
	PlaneDownsampling       int32   `yaml:"plane_downsampling" validate:"omitempty,min=1,max=16"`
	ConvexhullDownsampling  int32   `yaml:"convexhull_downsampling" validate:"omitempty,min=1,max=16"`
	Alpha                   float64 `yaml:"alpha" validate:"min=0,max=1"`
	Beta                    float64 `yaml:"beta" validate:"min=0,max=1"`
	Gamma                   float64 `yaml:"gamma" validate:"min=0,max=1"`
	Delta                   float64 `yaml:"delta" validate:"min=0,max=1"`
	PCA                     bool    `yaml:"pca"`
	Mode                    string  `yaml:"mode" validate:"omitempty,oneof=voxel tetrahedron"`
	MaxNumVerticesPerCH     uint32  `yaml:"max_vertices_per_hull" validate:"omitempty,min=4,max=1024"`
	MinVolumePerCH          float64 `yaml:"min_volume_per_hull" validate:"min=0,max=0.01"`
	ConvexhullApproximation bool    `yaml:"convexhull_approximation"`
	OCLAcceleration         bool    `yaml:"ocl_acceleration"`
	MaxConvexHulls          uint32  `yaml:"max_convex_hulls" validate:"omitempty,min=1"`
	ProjectHullVertices     bool    `yaml:"project_hull_vertices"`

	// Callback receives progress from engines that report it.
	Callback native.ProgressFunc `yaml:"-"`
	// Logger receives engine diagnostic messages.
	Logger native.LogFunc `yaml:"-"`
}

// DefaultParameters returns the native engine defaults.
func DefaultParameters() Parameters {
	d := native.DefaultParameters()
	return Parameters{
		Resolution:              d.Resolution,
		Depth:                   d.Depth,
		Concavity:               d.Concavity,
		PlaneDownsampling:       d.PlaneDownsampling,
		ConvexhullDownsampling:  d.ConvexhullDownsampling,
		Alpha:                   d.Alpha,
		Beta:                    d.Beta,
		Gamma:                   d.Gamma,
		Delta:                   d.Delta,
		PCA:                     d.PCA != 0,
		Mode:                    ModeVoxel,
		MaxNumVerticesPerCH:     d.MaxNumVerticesPerCH,
		MinVolumePerCH:          d.MinVolumePerCH,
		ConvexhullApproximation: d.ConvexhullApproximation != 0,
		OCLAcceleration:         d.OCLAcceleration != 0,
		MaxConvexHulls:          d.MaxConvexHulls,
		ProjectHullVertices:     d.ProjectHullVertices != 0,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateParameters checks p against the ranges the native parameter block
// accepts. Errors wrap ErrInvalidInput.
func ValidateParameters(p Parameters) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrInvalidInput, err)
	}
	return nil
}

// translateParameters copies p field by field into a new native block.
func translateParameters(p Parameters) *native.Parameters {
	d := native.DefaultParameters()
	out := &native.Parameters{
		Concavity:               p.Concavity,
		Alpha:                   p.Alpha,
		Beta:                    p.Beta,
		Gamma:                   p.Gamma,
		Delta:                   p.Delta,
		MinVolumePerCH:          p.MinVolumePerCH,
		Resolution:              orDefault(p.Resolution, d.Resolution),
		MaxNumVerticesPerCH:     orDefault(p.MaxNumVerticesPerCH, d.MaxNumVerticesPerCH),
		MaxConvexHulls:          orDefault(p.MaxConvexHulls, d.MaxConvexHulls),
		Depth:                   orDefault(p.Depth, d.Depth),
		PlaneDownsampling:       orDefault(p.PlaneDownsampling, d.PlaneDownsampling),
		ConvexhullDownsampling:  orDefault(p.ConvexhullDownsampling, d.ConvexhullDownsampling),
		PCA:                     boolFlag(p.PCA),
		Mode:                    native.ModeVoxel,
		ConvexhullApproximation: boolFlag(p.ConvexhullApproximation),
		OCLAcceleration:         boolFlag(p.OCLAcceleration),
		ProjectHullVertices:     boolFlag(p.ProjectHullVertices),
		Callback:                p.Callback,
		Logger:                  p.Logger,
	}
	if p.Mode == ModeTetrahedron {
		out.Mode = native.ModeTetrahedron
	}
	return out
}

func orDefault[T uint32 | int32](v, def T) T {
	if v == 0 {
		return def
	}
	return v
}

func boolFlag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
