package lerrors

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// DiagnosticKind enumerates conditions worth reporting but never worth
// aborting the project over: a leaked register count at HALT, a
// clone-creation request rejected by the clone limit, a broadcast or
// target lookup that found nothing to dispatch to, and a thread that died
// mid-frame from a fatal Error.
type DiagnosticKind int

const (
	// RegisterLeak reports a non-zero regCount at any HALT (inner or
	// outer) or when a stop request unwinds the VM.
	RegisterLeak DiagnosticKind = iota
	// CloneLimitReached reports a clone request silently skipped because
	// the configured clone limit was already hit.
	CloneLimitReached
	// BroadcastMiss reports a broadcast or backdrop change with no
	// registered hats to receive it.
	BroadcastMiss
	// TargetMiss reports a lookup for a target (sprite/stage) that no
	// longer exists.
	TargetMiss
	// ScriptFault reports a thread stopped mid-step after its VM returned a
	// fatal Error; the rest of that frame's threads still ran.
	ScriptFault
)

func (k DiagnosticKind) String() string {
	switch k {
	case RegisterLeak:
		return "register-leak"
	case CloneLimitReached:
		return "clone-limit-reached"
	case BroadcastMiss:
		return "broadcast-miss"
	case TargetMiss:
		return "target-miss"
	case ScriptFault:
		return "script-fault"
	default:
		return "unknown"
	}
}

// Sink receives non-fatal diagnostics. Implementations must not block the
// caller meaningfully; the VM and engine call these inline on their hot
// path.
type Sink interface {
	Diagnostic(kind DiagnosticKind, fields map[string]string, msg string)
}

// zerologSink is the default Sink, backed by a structured zerolog.Logger.
type zerologSink struct {
	log zerolog.Logger
}

// NewZerologSink builds a Sink writing structured diagnostic events to w.
// Pass os.Stderr for CLI use; tests typically pass an io.Discard-wrapped
// writer or a buffer to assert on emitted diagnostics.
func NewZerologSink(w io.Writer) Sink {
	return &zerologSink{log: zerolog.New(w).With().Timestamp().Logger()}
}

// DefaultSink is a ready-to-use Sink writing to stderr; VMs/engines created
// without an explicit Sink fall back to this one.
var DefaultSink Sink = NewZerologSink(os.Stderr)

func (s *zerologSink) Diagnostic(kind DiagnosticKind, fields map[string]string, msg string) {
	evt := s.log.Warn().Str("kind", kind.String())
	for k, v := range fields {
		evt = evt.Str(k, v)
	}
	evt.Msg(msg)
}

// DiscardSink silences all diagnostics; useful in tests asserting only on
// VM/engine return values.
var DiscardSink Sink = discardSink{}

type discardSink struct{}

func (discardSink) Diagnostic(DiagnosticKind, map[string]string, string) {}
