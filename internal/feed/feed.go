package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Event is one exposure of a visitor to an experiment variant, optionally
// with a conversion. Sources emit either a JSON array of events or one JSON
// object per line.
type Event struct {
	ID         string `json:"id"`
	Experiment string `json:"experiment"`
	Variant    string `json:"variant"`
	Converted  bool   `json:"converted"`
	TS         int64  `json:"ts"`
}

type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTTPFetcher struct {
	Client *http.Client
}

func (h HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 12 * time.Second}
	}
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	resp, err := h.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", errors.New("http_status_" + resp.Status)
	}
	b, _ := io.ReadAll(resp.Body)
	return string(b), nil
}

// ParseEvents extracts events from a source payload, skipping lines that do
// not parse and deduplicating by event id (or experiment|variant|ts when the
// source sets no id).
func ParseEvents(text string) []Event {
	t := strings.TrimSpace(text)
	if t == "" {
		return []Event{}
	}
	var raw []Event
	if strings.HasPrefix(t, "[") {
		if err := json.Unmarshal([]byte(t), &raw); err != nil {
			return []Event{}
		}
	} else {
		for _, line := range strings.Split(t, "\n") {
			l := strings.TrimSpace(line)
			if l == "" {
				continue
			}
			var e Event
			if err := json.Unmarshal([]byte(l), &e); err == nil {
				raw = append(raw, e)
			}
		}
	}
	seen := map[string]bool{}
	out := []Event{}
	for _, e := range raw {
		if e.Experiment == "" || (e.Variant != "A" && e.Variant != "B") {
			continue
		}
		key := e.ID
		if key == "" {
			key = fmt.Sprintf("%s|%s|%d", e.Experiment, e.Variant, e.TS)
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, e)
		}
	}
	return out
}
