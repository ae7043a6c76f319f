package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/vidsearch/ai"
)

const summaryPrompt = `You write short descriptions of instructional videos so that people can find them with a search engine.

Below is the full transcript of a video, followed by the same transcript split into timestamped segments.

<transcript>
%s
</transcript>

<segments>
%s
</segments>

Write a concise summary of what the video covers. Mention the main topics, the key terms a viewer might search for and, when it helps, the time range where each topic is discussed. Write in the language of the transcript.

Put the final summary between <summary> and </summary> tags.`

var summaryPattern = regexp.MustCompile(`(?s)<summary>(.*?)</summary>`)

// buildSummaryPrompt renders the summarization prompt for a transcription.
func buildSummaryPrompt(t *ai.Transcription) ai.Prompt {
	return ai.TextPrompt(fmt.Sprintf(summaryPrompt, t.Text, formatSegments(t.Segments)))
}

// formatSegments renders one "HH:MM:SS - HH:MM:SS: text" line per segment,
// skipping segments without text.
func formatSegments(segments []ai.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s - %s: %s", formatTimestamp(seg.Start), formatTimestamp(seg.End), text))
	}
	return strings.Join(lines, "\n")
}

// formatTimestamp renders seconds as HH:MM:SS, truncating fractions.
func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// parseSummary returns the trimmed body of the last <summary> block, or
// text unchanged when there is none.
func parseSummary(text string) string {
	matches := summaryPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}
