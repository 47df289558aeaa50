// Package generation defines the boundary between the application core and the
// external generative-AI service: the prompt enhancement, image generation and model
// listing ports, plus the errors adapters return when a call cannot produce usable
// output. Transport-level failures (aborts, transient statuses, unexpected statuses)
// are defined by the httpretry package and propagate through these ports unchanged.
package generation
