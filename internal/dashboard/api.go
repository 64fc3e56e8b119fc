package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// API provides HTTP endpoints for inspecting what the echo listener received
type API struct {
	store  *LogStore
	broker *Broker
}

// NewAPI creates a new dashboard API and hooks the store to emit
// 'request' events on the broker.
func NewAPI(store *LogStore, broker *Broker) *API {
	store.OnAdd = func(log RequestLog) {
		broker.Broadcast("request", log)
	}

	return &API{
		store:  store,
		broker: broker,
	}
}

// Register mounts the dashboard routes on mux.
func (api *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/requests", cors(api.handleRequests))
	mux.HandleFunc("/requests/", cors(api.handleRequestDetail))

	// Server-Sent Events stream
	mux.HandleFunc("/stream", api.broker.StreamHandler())
}

// cors allows a browser dashboard on another origin to read the API.
func cors(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h(w, r)
	}
}

// handleRequests handles GET /requests to list recent requests with optional
// filters, and DELETE /requests to clear them.
func (api *API) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		api.store.Reset()
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	limit := 50
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	filter := Filter{
		Path:   q.Get("path"),
		Method: q.Get("method"),
	}
	if s := q.Get("status"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			filter.Status = parsed
		}
	}

	// If no specific filters, use Recent() for faster retrieval
	var logs []RequestLog
	if filter == (Filter{}) {
		logs = api.store.Recent(limit)
	} else {
		logs = api.store.Search(limit, filter)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": logs,
		"total":    api.store.Len(),
	})
}

// handleRequestDetail handles GET /requests/{id} to get a single record
func (api *API) handleRequestDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/requests/")
	if id == "" {
		http.Error(w, "Request ID required", http.StatusBadRequest)
		return
	}

	log, found := api.store.GetByID(id)
	if !found {
		http.Error(w, "Request not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, log)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
