package logging

import (
	"go.uber.org/zap"

	"hullbridge/vhacd"
)

// MeshFields describes a mesh without dumping its buffers.
func MeshFields(m vhacd.Mesh) []zap.Field {
	return []zap.Field{
		zap.Uint32("points", m.CountPoints),
		zap.Uint32("triangles", m.CountTriangles),
		zap.Uint32("stride_points", m.StridePoints),
		zap.Uint32("stride_triangles", m.StrideTriangles),
	}
}

// ParamsFields lists the parameters that most affect run time and output.
func ParamsFields(p vhacd.Parameters) []zap.Field {
	return []zap.Field{
		zap.Uint32("resolution", p.Resolution),
		zap.Float64("concavity", p.Concavity),
		zap.String("mode", p.Mode),
		zap.Uint32("max_convex_hulls", p.MaxConvexHulls),
		zap.Uint32("max_vertices_per_hull", p.MaxNumVerticesPerCH),
		zap.Float64("min_volume_per_hull", p.MinVolumePerCH),
	}
}

// OutcomeFields summarizes a finished Compute.
func OutcomeFields(r vhacd.ComputeReport) []zap.Field {
	fields := []zap.Field{
		zap.Uint64("engine_id", r.EngineID),
		zap.Stringer("outcome", r.Outcome),
		zap.Duration("duration", r.Duration),
		zap.Uint32("hulls", r.Hulls),
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	return fields
}
