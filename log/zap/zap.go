package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/playstate"
)

type ZapLogger struct{ L *zap.Logger }

var _ playstate.Logger = ZapLogger{}

func (z ZapLogger) Debug(msg string, f playstate.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f playstate.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f playstate.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f playstate.Fields) { z.L.Error(msg, zf(f)...) }

// zf keeps errors as zap.Error fields so encoders render them as such.
func zf(f playstate.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
