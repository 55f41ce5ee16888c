package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/miradorstack/anomaly-timeline/internal/utils"
)

type camera struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
}

type anomaly struct {
	ID          string  `json:"_id,omitempty"`
	Camera      *camera `json:"camera,omitempty"`
	Timestamp   any     `json:"timestamp,omitempty"`
	Duration    any     `json:"duration,omitempty"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
}

type bucket struct {
	Anomalies []any `json:"anomalies"`
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	base := flag.String("date", time.Now().Format(utils.DateLayout), "first date of the generated graph (YYYY-MM-DD)")
	flag.Parse()

	logger := utils.NewLogger("debug", false)
	start, err := utils.ParseDate(*base)
	if err != nil {
		logger.Error("invalid -date", slog.Any("error", err))
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/anomalies/graph", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"graphData": graph(start)})
	})

	logger.Info("mock anomaly graph listening", slog.String("address", *addr), slog.String("first_date", *base))
	srv := &http.Server{Addr: *addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

// graph builds four days of anomalies starting at day, including entries the engine must
// reject or quarantine.
func graph(day time.Time) map[string]bucket {
	gate := &camera{ID: "cam-1", Name: "Gate", Location: "North entrance"}
	lobby := &camera{ID: "cam-2", Name: "Lobby"}
	dock := &camera{ID: "cam-3", Name: "Loading dock", Location: "Rear"}
	at := func(d time.Time, hour, minute int) string {
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.Local).Format(time.RFC3339)
	}

	d0, d1, d2, d3 := day, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), day.AddDate(0, 0, 3)
	return map[string]bucket{
		d0.Format(utils.DateLayout): {Anomalies: []any{
			anomaly{ID: "an-100", Camera: gate, Timestamp: at(d0, 9, 0), Duration: "1:15", Type: "intrusion", Status: "open", Description: "Person climbing fence"},
			anomaly{ID: "an-101", Camera: lobby, Timestamp: at(d0, 11, 30), Duration: "0:20", Type: "loitering", Status: "resolved"},
			anomaly{ID: "an-102", Camera: dock, Timestamp: at(d0, 23, 30), Duration: "1:00", Type: "vehicle", Status: "open", Description: "Unscheduled truck"},
		}},
		d1.Format(utils.DateLayout): {Anomalies: []any{
			anomaly{ID: "an-200", Camera: gate, Timestamp: time.Date(d1.Year(), d1.Month(), d1.Day(), 7, 45, 0, 0, time.Local).UnixMilli(), Duration: "0:45", Type: "tailgating", Status: "open"},
			anomaly{ID: "an-201", Camera: lobby, Timestamp: at(d1, 14, 0), Duration: "abc", Type: "loitering", Status: "open", Description: "Malformed duration"},
			anomaly{Camera: lobby, Timestamp: at(d1, 15, 0), Duration: "0:10", Type: "loitering", Status: "open", Description: "Missing id"},
			"not an object",
		}},
		d2.Format(utils.DateLayout): {Anomalies: []any{
			anomaly{ID: "an-300", Camera: dock, Timestamp: at(d2, 8, 10), Duration: "0:30", Type: "motion", Status: "open"},
			anomaly{ID: "an-301", Camera: dock, Timestamp: at(d2, 11, 10), Duration: "1:30", Type: "motion", Status: "open"},
			anomaly{ID: "an-302", Camera: gate, Timestamp: at(d2, 14, 10), Duration: 90, Type: "motion", Status: "open", Description: "Numeric duration"},
		}},
		d3.Format(utils.DateLayout): {Anomalies: []any{}},
		"someday":                   {Anomalies: []any{anomaly{ID: "an-900", Camera: gate, Timestamp: at(d3, 1, 0), Duration: "0:05"}}},
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode error", slog.Any("error", err))
	}
}
