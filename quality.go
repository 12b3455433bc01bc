package texsync

import (
	"go.uber.org/zap"
)

// DefaultQualityLadder is the adaptive texture resolution ladder: full
// quality first, stepping down under sustained load.
var DefaultQualityLadder = []int{1024, 512, 256}

// QualityMonitor watches frame times and walks the texture resolution ladder:
// down a step when FPS stays below MinFPS, back up when it stays above
// RecoverFPS. It only decides; the session performs the actual
// resize-then-flush so the resize and the refresh happen exactly once each.
type QualityMonitor struct {
	ladder []int
	idx    int

	// MinFPS is the floor below which quality steps down.
	MinFPS float64
	// RecoverFPS is the ceiling above which quality steps back up.
	RecoverFPS float64

	window  []float64
	samples int
	elapsed float64
	log     *zap.Logger
}

// defaultQualityWindow is how many frames are averaged per decision.
const defaultQualityWindow = 60

// NewQualityMonitor creates a monitor starting at the top of the ladder.
// A nil or empty ladder uses DefaultQualityLadder.
func NewQualityMonitor(ladder []int, log *zap.Logger) *QualityMonitor {
	if len(ladder) == 0 {
		ladder = DefaultQualityLadder
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QualityMonitor{
		ladder:     append([]int(nil), ladder...),
		MinFPS:     30,
		RecoverFPS: 55,
		window:     make([]float64, 0, defaultQualityWindow),
		log:        log,
	}
}

// Size returns the texture resolution for the current quality level.
func (q *QualityMonitor) Size() int {
	return q.ladder[q.idx]
}

// Level returns the current ladder index (0 = full quality).
func (q *QualityMonitor) Level() int {
	return q.idx
}

// ObserveFrame records one frame's duration in seconds. When a full sample
// window has accumulated it evaluates average FPS and reports whether the
// quality level changed, along with the new texture size.
func (q *QualityMonitor) ObserveFrame(dt float64) (changed bool, size int) {
	if dt <= 0 {
		return false, q.Size()
	}
	q.window = append(q.window, dt)
	q.elapsed += dt
	if len(q.window) < defaultQualityWindow {
		return false, q.Size()
	}

	fps := float64(len(q.window)) / q.elapsed
	q.window = q.window[:0]
	q.elapsed = 0

	switch {
	case fps < q.MinFPS && q.idx < len(q.ladder)-1:
		q.idx++
		q.log.Info("quality fallback",
			zap.Float64("fps", fps),
			zap.Int("size", q.Size()))
		return true, q.Size()
	case fps > q.RecoverFPS && q.idx > 0:
		q.idx--
		q.log.Info("quality recovered",
			zap.Float64("fps", fps),
			zap.Int("size", q.Size()))
		return true, q.Size()
	}
	return false, q.Size()
}

// Reset clears the sample window, e.g. after a deliberate quality change so
// the transition cost does not immediately trigger another step.
func (q *QualityMonitor) Reset() {
	q.window = q.window[:0]
	q.elapsed = 0
}
