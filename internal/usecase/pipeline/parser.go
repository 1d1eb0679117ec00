package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/derricker/meetai/internal/domain/entities"
)

// parseTranscript decodes newline-delimited JSON utterance records. Blank
// lines are tolerated; any malformed line fails the whole parse, since a
// partially decoded transcript would silently skew the summary.
func parseTranscript(raw string) ([]entities.TranscriptItem, error) {
	var items []entities.TranscriptItem

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item entities.TranscriptItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("malformed transcript line %d: %w", lineNo, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	return items, nil
}
