package telemetry

// Span attribute keys recorded on fog renders.
const (
	MetricFogRenderLatency = "fog.render_latency_us"
	MetricFogRevealsDrawn  = "fog.reveals_drawn"
)
