package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/anomaly-timeline/internal/models"
	"github.com/miradorstack/anomaly-timeline/internal/utils"
)

type graphResponse struct {
	GraphData map[string]struct {
		Anomalies []json.RawMessage `json:"anomalies"`
	} `json:"graphData"`
}

type wireCamera struct {
	ID       string `json:"id"`
	MongoID  string `json:"_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type wireAnomaly struct {
	ID          string          `json:"id"`
	MongoID     string          `json:"_id"`
	Camera      *wireCamera     `json:"camera"`
	Timestamp   json.RawMessage `json:"timestamp"`
	Duration    json.RawMessage `json:"duration"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
}

// DecodeGraph parses an anomaly-graph payload into typed buckets sorted by date. Entries
// that cannot become a valid AnomalyRecord are quarantined with a reason.
func DecodeGraph(data []byte, loc *time.Location) (models.AnomalyGraph, error) {
	var resp graphResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.AnomalyGraph{}, fmt.Errorf("decode response: %w", err)
	}

	dates := make([]string, 0, len(resp.GraphData))
	for date := range resp.GraphData {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var graph models.AnomalyGraph
	for _, date := range dates {
		entries := resp.GraphData[date].Anomalies
		if _, err := utils.ParseDate(date); err != nil {
			for i := range entries {
				graph.Quarantine = append(graph.Quarantine, models.QuarantinedEntry{Date: date, Index: i, Reason: models.ReasonBadDateKey})
			}
			continue
		}

		bucket := models.DateBucket{Date: date, Anomalies: make([]models.AnomalyRecord, 0, len(entries))}
		for i, raw := range entries {
			record, reason := decodeAnomaly(raw, loc)
			if reason != "" {
				graph.Quarantine = append(graph.Quarantine, models.QuarantinedEntry{Date: date, Index: i, ID: record.ID, Reason: reason})
				continue
			}
			bucket.Anomalies = append(bucket.Anomalies, record)
		}
		graph.Buckets = append(graph.Buckets, bucket)
	}
	return graph, nil
}

func decodeAnomaly(raw json.RawMessage, loc *time.Location) (models.AnomalyRecord, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.AnomalyRecord{}, models.ReasonNotObject
	}
	var w wireAnomaly
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return models.AnomalyRecord{}, models.ReasonUndecodable
	}

	record := models.AnomalyRecord{
		ID:          firstNonEmpty(w.ID, w.MongoID),
		Duration:    durationText(w.Duration),
		Type:        w.Type,
		Status:      w.Status,
		Description: w.Description,
	}
	if record.ID == "" {
		return record, models.ReasonMissingID
	}
	if w.Camera == nil || strings.TrimSpace(w.Camera.Name) == "" {
		return record, models.ReasonMissingCameraName
	}
	record.Camera = models.Camera{
		ID:       firstNonEmpty(w.Camera.ID, w.Camera.MongoID),
		Name:     w.Camera.Name,
		Location: w.Camera.Location,
	}

	ts, ok := decodeTimestamp(w.Timestamp, loc)
	if !ok {
		return record, models.ReasonBadTimestamp
	}
	record.Timestamp = ts
	return record, ""
}

// decodeTimestamp accepts an ISO-8601 string or epoch milliseconds.
func decodeTimestamp(raw json.RawMessage, loc *time.Location) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		ts, err := utils.ParseInstant(text, loc)
		return ts, err == nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && !math.IsNaN(ms) && !math.IsInf(ms, 0) {
		return utils.FromEpochMillis(int64(ms)), true
	}
	return time.Time{}, false
}

// durationText keeps a non-string duration as its literal text so the codec rejects it downstream.
func durationText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(bytes.TrimSpace(raw))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
