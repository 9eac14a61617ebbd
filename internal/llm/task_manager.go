package llm

// MapPhase maps provider-specific status strings to a Phase.
func MapPhase(status string) Phase {
	switch toLowerASCII(status) {
	case "pending", "queued", "in_queue", "created":
		return PhaseQueued
	case "running", "processing", "in_progress", "started":
		return PhaseProcessing
	case "succeeded", "success", "completed", "done", "ok":
		return PhaseCompleted
	case "failed", "failure", "error", "cancelled", "canceled", "aborted", "stopped":
		return PhaseFailed
	default:
		return PhaseProcessing // 未知状态按进行中处理
	}
}

// toLowerASCII converts ASCII letters to lowercase without allocating.
func toLowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}
