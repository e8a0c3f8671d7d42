package roles

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"greycells/internal/llm"
	"greycells/internal/repair"
)

// Transcript is an llm.Hook that writes every raw answer to a file in Dir,
// named after the phase: pm.txt, coder.txt, test.txt and
// debug_<iteration>_<subject>.txt.
type Transcript struct {
	Dir    string
	Logger *log.Logger

	mu sync.Mutex
}

func (t *Transcript) Before(context.Context, string, llm.Request) {}

func (t *Transcript) After(_ context.Context, phase string, out llm.Completion, err error) {
	text := out.Text
	if err != nil {
		text = "error: " + err.Error()
	}
	name := TranscriptName(phase)
	t.mu.Lock()
	defer t.mu.Unlock()
	if werr := t.write(name, text); werr != nil {
		logger := t.Logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("roles: transcript %s: %v", name, werr)
	}
}

func (t *Transcript) write(name, text string) error {
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(t.Dir, name), []byte(text), 0o644)
}

// TranscriptName maps a call phase to its transcript file name.
func TranscriptName(phase string) string {
	switch phase {
	case repair.PhasePlan:
		return "pm.txt"
	case repair.PhaseSource:
		return "coder.txt"
	case repair.PhaseTest:
		return "test.txt"
	}
	var subject string
	var n int
	if rest, ok := strings.CutPrefix(phase, "arbitrate."); ok {
		if s, num, ok := strings.Cut(rest, "."); ok {
			if _, err := fmt.Sscanf(num, "%d", &n); err == nil {
				subject = s
			}
		}
	}
	if subject != "" {
		return fmt.Sprintf("debug_%d_%s.txt", n, subject)
	}
	return strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(phase) + ".txt"
}
