package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/improv/file"
	"github.com/jsphweid/improv/improviser"
	"github.com/jsphweid/improv/ingest"
	"github.com/jsphweid/improv/markov"
	"github.com/jsphweid/improv/midi"
	"github.com/jsphweid/improv/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	maxUploadBytes = 64 << 20
	reloadDelay    = 500 * time.Millisecond
)

// Server exposes one improviser over HTTP. Requests are serialized on mu
// because an Improviser is not safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	im       *improviser.Improviser
	mediaDir string
	maxFiles int
	reload   func(func())
}

func NewServer(im *improviser.Improviser, mediaDir string, maxFiles int) *Server {
	return &Server{
		im:       im,
		mediaDir: mediaDir,
		maxFiles: maxFiles,
		reload:   debounce.New(reloadDelay),
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(requestLogger)
	router.HandleFunc("/train", s.handleTrain).Methods("POST")
	router.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	router.HandleFunc("/model", s.handleModel).Methods("GET")
	router.HandleFunc("/reload", s.handleReload).Methods("POST")
	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"request": id,
			"method":  r.Method,
			"path":    r.URL.Path,
		}).Debugf("Handled in %v", time.Since(start))
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, errors.Wrap(improviser.ErrInvalidArgument, "expected a multipart form"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, errors.Wrap(improviser.ErrInvalidArgument, "no files uploaded"))
		return
	}

	docs := make([]model.Document, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeError(w, errors.Wrapf(err, "opening upload %s", header.Filename))
			return
		}
		doc, err := midi.Decode(f, header.Filename)
		f.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		docs = append(docs, doc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw := r.FormValue("order"); raw != "" {
		order, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, errors.Wrapf(improviser.ErrInvalidArgument, "order %q is not a number", raw))
			return
		}
		if err := s.im.SetOrder(order, true); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.im.Train(docs); err != nil {
		writeError(w, err)
		return
	}

	stats := s.im.Stats()
	writeJSON(w, http.StatusOK, model.TrainResponse{
		Files:       len(docs),
		Order:       stats.Order,
		Contexts:    stats.Contexts,
		Transitions: stats.Transitions,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	opts := improviser.DefaultGenerateOptions()
	var body model.GenerateRequestBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, errors.Wrap(improviser.ErrInvalidArgument, "could not decode request body: "+err.Error()))
			return
		}
	}
	if body.MaxNotes != 0 {
		opts.MaxNotes = body.MaxNotes
	}
	if body.Tempo != 0 {
		opts.TempoBPM = body.Tempo
	}
	if body.Key != "" {
		opts.Key = body.Key
	}
	if body.Mode != "" {
		opts.Mode = body.Mode
	}
	opts.Reinforcement = body.Reinforcement
	opts.EnforceKey = body.EnforceKey

	s.mu.Lock()
	var data []byte
	var err error
	if body.Recursive {
		data, err = s.im.GenerateRecursively(opts)
	} else {
		data, err = s.im.Generate(opts)
	}
	order := s.im.Order()
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", makeFileName(opts, order)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.im.Stats()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, model.ModelResponse{
		Order:       stats.Order,
		Contexts:    stats.Contexts,
		Transitions: stats.Transitions,
		TotalWeight: stats.TotalWeight,
	})
}

// handleReload retrains from the media directory. Bursts of calls collapse
// into a single retrain once they stop for reloadDelay.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.mediaDir == "" {
		writeError(w, errors.Wrap(improviser.ErrInvalidArgument, "MEDIA_PATH is not set"))
		return
	}
	s.reload(s.retrain)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) retrain() {
	logger := log.WithFields(log.Fields{
		"function": "Server.retrain",
		"dir":      s.mediaDir,
	})

	docs, err := file.LoadDir(s.mediaDir, s.maxFiles, false)
	if err != nil {
		logger.Errorf("Could not load media: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.im.Train(docs); err != nil {
		logger.Errorf("Could not retrain: %v", err)
	}
}

func statusOf(err error) int {
	var decodeErr *ingest.DecodeError
	switch {
	case errors.Is(err, improviser.ErrInvalidArgument), errors.As(err, &decodeErr):
		return http.StatusBadRequest
	case errors.Is(err, markov.ErrEmptyModel):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{"function": "writeError"}).Error(err)
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
