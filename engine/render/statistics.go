package render

import "go.uber.org/zap/zapcore"

// Statistics are per-frame renderer counters. They are reset once per frame.
type Statistics struct {
	DrawCalls       int
	Vertices        int
	Indices         int
	Triangles       int
	Objects         int
	Lights          int
	Batches         int
	DroppedEntities int
	DroppedLights   int
}

// MarshalLogObject lets Statistics be logged with zap.Object.
func (s Statistics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("draw_calls", s.DrawCalls)
	enc.AddInt("vertices", s.Vertices)
	enc.AddInt("indices", s.Indices)
	enc.AddInt("triangles", s.Triangles)
	enc.AddInt("objects", s.Objects)
	enc.AddInt("lights", s.Lights)
	enc.AddInt("batches", s.Batches)
	enc.AddInt("dropped_entities", s.DroppedEntities)
	enc.AddInt("dropped_lights", s.DroppedLights)
	return nil
}
