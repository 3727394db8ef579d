package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

//go:embed movies.json
var defaultData []byte

type movieEntry struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID"`
}

type searchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "", "path to mock data file (defaults to the embedded set)")
		apiKey  = flag.String("apikey", "", "require this api key when set")
		delay   = flag.Duration("delay", 0, "artificial latency per request")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file := defaultData
	if *data != "" {
		var err error
		if file, err = os.ReadFile(*data); err != nil {
			log.Fatalf("read mock data: %v", err)
		}
	}

	var entries []movieEntry
	if err := json.Unmarshal(file, &entries); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}
	byID := make(map[string]movieEntry, len(entries))
	for _, e := range entries {
		byID[e.ImdbID] = e
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if *verbose {
			log.Printf("%s s=%q i=%q", r.Method, q.Get("s"), q.Get("i"))
		}
		if *delay > 0 {
			select {
			case <-time.After(*delay):
			case <-r.Context().Done():
				return
			}
		}
		if *apiKey != "" && q.Get("apikey") != *apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"Response": "False", "Error": "Invalid API key!"})
			return
		}

		switch {
		case q.Get("i") != "":
			entry, ok := byID[q.Get("i")]
			if !ok {
				writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
				return
			}
			writeJSON(w, http.StatusOK, struct {
				movieEntry
				Response string `json:"Response"`
			}{entry, "True"})
		case q.Get("s") != "":
			needle := strings.ToLower(q.Get("s"))
			var found []searchItem
			for _, e := range entries {
				if strings.Contains(strings.ToLower(e.Title), needle) {
					found = append(found, searchItem{Title: e.Title, Year: e.Year, ImdbID: e.ImdbID, Type: "movie", Poster: e.Poster})
				}
			}
			if len(found) == 0 {
				writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Movie not found!"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"Search": found, "totalResults": len(found), "Response": "True"})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
		}
	})

	addr := ":" + *port
	log.Printf("mock catalog listening on %s with %d entries", addr, len(entries))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
