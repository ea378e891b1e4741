package isolog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }

// NewZap builds a Logger backed by zap's production JSON encoder,
// writing to stderr. Use NewRotatingFile to also write to a rotating
// log directory in the teacher's logrecorder style.
func NewZap() (Logger, error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: zl.Sugar()}, nil
}

// RotatingFileCore is the teacher's logrecorder.InitAndRotate rebuilt
// as a zapcore.WriteSyncer: a new dated directory and a
// timestamp-suffixed file are opened every rotateEvery, matching
// logrecorder's "date-named directory, timestamp-suffixed log file"
// scheme instead of truncating or appending to a single file forever.
type RotatingFileCore struct {
	baseDir    string
	namePrefix string
	current    *os.File
}

// NewRotatingFile opens the first log file under baseDir/<date>/ and
// returns both the Logger and a stop function that ends rotation.
func NewRotatingFile(baseDir, namePrefix string, rotateEvery time.Duration) (Logger, func(), error) {
	r := &RotatingFileCore{baseDir: baseDir, namePrefix: namePrefix}
	if err := r.rotate(); err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(r),
		zapcore.InfoLevel,
	)
	zl := zap.New(core)
	logger := &zapLogger{s: zl.Sugar()}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(rotateEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.rotate(); err != nil {
					logger.Errorf("log rotation failed: %v", err)
				}
			case <-stopCh:
				return
			}
		}
	}()

	return logger, func() { close(stopCh) }, nil
}

func (r *RotatingFileCore) rotate() error {
	now := time.Now()
	dir := filepath.Join(r.baseDir, now.Format("2006_01_02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", r.namePrefix, now.Format("20060102_1504")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	old := r.current
	r.current = f
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Write implements io.Writer for zapcore.AddSync.
func (r *RotatingFileCore) Write(p []byte) (int, error) {
	if r.current == nil {
		return 0, fmt.Errorf("rotating file core has no open file")
	}
	return r.current.Write(p)
}

// Sync implements zapcore.WriteSyncer.
func (r *RotatingFileCore) Sync() error {
	if r.current == nil {
		return nil
	}
	return r.current.Sync()
}
