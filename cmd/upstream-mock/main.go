package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
)

// fixture is the mock data file: movie infos plus the reviews left for them.
type fixture struct {
	MovieInfos []domain.MovieInfo `json:"movieInfos"`
	Reviews    []domain.Review    `json:"reviews"`
}

func main() {
	var (
		port     = flag.String("port", "9099", "port to listen on")
		data     = flag.String("data", "mock-movies.json", "path to mock data file")
		failRate = flag.Float64("fail-rate", 0, "share of requests answered with 500, between 0 and 1")
		verbose  = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}
	var fx fixture
	if err := json.Unmarshal(file, &fx); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	handler := newMux(fx, *failRate)
	if *verbose {
		log.Printf("loaded %d movie infos and %d reviews", len(fx.MovieInfos), len(fx.Reviews))
		handler = logRequests(handler)
	}

	addr := ":" + *port
	log.Printf("mock upstreams listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newMux(fx fixture, failRate float64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /movieinfos/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		rc := http.NewResponseController(w)
		for _, info := range fx.MovieInfos {
			if err := enc.Encode(info); err != nil {
				return
			}
		}
		_ = rc.Flush()
		// Hold the feed open like the real service does.
		<-r.Context().Done()
	})
	mux.HandleFunc("GET /movieinfos/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		for _, info := range fx.MovieInfos {
			if info.ID == id {
				writeJSON(w, info)
				return
			}
		}
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	mux.HandleFunc("GET /reviews", func(w http.ResponseWriter, r *http.Request) {
		reviews := make([]domain.Review, 0)
		movieInfoID, err := strconv.ParseInt(r.URL.Query().Get("movieInfoId"), 10, 64)
		if err == nil {
			for _, review := range fx.Reviews {
				if review.MovieInfoID != nil && *review.MovieInfoID == movieInfoID {
					reviews = append(reviews, review)
				}
			}
		}
		writeJSON(w, reviews)
	})
	return failSome(mux, failRate)
}

// failSome answers a random share of requests with 500 so callers can
// exercise their retry policy.
func failSome(next http.Handler, rate float64) http.Handler {
	if rate <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rand.Float64() < rate {
			http.Error(w, "mock upstream failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
