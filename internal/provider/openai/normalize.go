package openai

import (
	"fmt"
	"strings"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

const (
	failedMessage    = "Research task failed"
	noContentMessage = "No content available"
)

// Caps applied after collection, so order is preserved.
const (
	citationCap = 10
	toolCallCap = 5
)

// normalize flattens one raw API reply into a Task. It is total: any
// combination of missing or partial fields resolves to a usable task, never
// to a fault.
func normalize(raw *rawResponse) *research.Task {
	task := &research.Task{Handle: raw.ID}

	if raw.Status == "" {
		return normalizeStatusless(raw, task)
	}

	switch raw.Status {
	case "queued":
		task.Status = research.StatusPending
	case "in_progress":
		task.Status = research.StatusInProgress
	case "completed":
		task.Status = research.StatusCompleted
		task.Report = lastText(raw.Output)
		task.Citations = collectCitations(raw.Output)
		task.Steps = collectSteps(raw.Output)
	case "failed":
		task.Status = research.StatusFailed
		task.Err = failedMessage
		task.ErrDetails = raw.Error.detail()
	default:
		task.Status = research.StatusError
		task.Err = fmt.Sprintf("unrecognized task status %q", raw.Status)
	}
	return task
}

// normalizeStatusless handles replies without a status field. A chat
// completions body is recognized by its choices and treated as a finished
// task; otherwise an error object means failure and anything else is still
// running.
func normalizeStatusless(raw *rawResponse, task *research.Task) *research.Task {
	switch {
	case len(raw.Choices) > 0:
		task.Status = research.StatusCompleted
		task.Report = raw.Choices[0].Message.Content
		if task.Report == "" {
			task.Report = noContentMessage
		}
	case raw.Error != nil:
		task.Status = research.StatusFailed
		task.Err = failedMessage
		task.ErrDetails = raw.Error.detail()
	default:
		task.Status = research.StatusInProgress
	}
	return task
}

// lastText returns the text of the last non-empty content block across all
// output items. The final answer comes last in the output sequence.
func lastText(items []outputItem) string {
	var report string
	for _, item := range items {
		for _, block := range item.Content {
			if block.Text != "" {
				report = block.Text
			}
		}
	}
	return report
}

// collectCitations gathers every url-bearing annotation in encounter order,
// then truncates to the first ten.
func collectCitations(items []outputItem) []research.Citation {
	var out []research.Citation
	for _, item := range items {
		for _, block := range item.Content {
			for _, ann := range block.Annotations {
				if ann.URL == "" {
					continue
				}
				title := ann.Title
				if title == "" {
					title = "Untitled"
				}
				out = append(out, research.Citation{
					URL:        ann.URL,
					Title:      title,
					StartIndex: ann.StartIndex,
					EndIndex:   ann.EndIndex,
				})
			}
		}
	}
	if len(out) > citationCap {
		out = out[:citationCap]
	}
	return out
}

// collectSteps summarizes how the task ran: reasoning summaries plus the
// first five tool invocations, in encounter order.
func collectSteps(items []outputItem) []research.Step {
	var steps []research.Step
	toolCalls := 0
	for _, item := range items {
		switch {
		case item.Type == "reasoning":
			if text := summaryText(item.Summary); text != "" {
				steps = append(steps, research.Step{Type: "reasoning_summary", Content: text})
			}
		case strings.HasSuffix(item.Type, "_call") && toolCalls < toolCallCap:
			tool := strings.TrimSuffix(item.Type, "_call")
			steps = append(steps, research.Step{
				Type:    "tool_call",
				Tool:    tool,
				Summary: "Called " + tool,
			})
			toolCalls++
		}
	}
	return steps
}

func summaryText(parts []summaryPart) string {
	var texts []string
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
