package llm

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

const logSnippetLimit = 120

// providerLogger 返回带 provider/model/job 字段的日志条目, 空值字段省略
func providerLogger(ctx context.Context, providerID, model, jobID string) *logrus.Entry {
	fields := logrus.Fields{"provider": providerID}
	if model = strings.TrimSpace(model); model != "" {
		fields["model"] = model
	}
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		fields["job_id"] = jobID
	}
	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// logSnippet 折叠空白并截断; 内联 base64 数据不进日志
func logSnippet(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return ""
	}
	if idx := strings.Index(value, ";base64,"); idx >= 0 {
		start := strings.LastIndex(value[:idx], "data:")
		if start >= 0 {
			value = value[:start] + "<inline data>"
		}
	}

	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}
	return string(runes[:logSnippetLimit]) + "..."
}
