package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"

	"imageclass/internal/classify"
	"imageclass/internal/model"
	"imageclass/internal/preprocess"
)

// maxUploadSize bounds the multipart form we're willing to parse (10MB).
const maxUploadSize = 10 << 20

type Handler struct {
	log      logs.Log
	pipeline *classify.Pipeline
	meta     *model.Metadata
}

func NewHandler(log logs.Log, pipeline *classify.Pipeline, meta *model.Metadata) *Handler {
	return &Handler{
		log:      log,
		pipeline: pipeline,
		meta:     meta,
	}
}

// Router builds the HTTP surface.
func (h *Handler) Router() *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", cors(h.Health))
	router.GET("/status", cors(h.Status))
	router.POST("/predict", cors(h.Predict))
	router.POST("/predict/image", cors(h.PredictFromImage))
	router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func cors(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		setCORSHeaders(w)
		next(w, r, params)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// statusResponse is the display boundary: the current state of the most
// recent classification request.
type statusResponse struct {
	State      string                      `json:"state"`
	Generation uint64                      `json:"generation"`
	Result     *model.ClassificationResult `json:"result,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := h.pipeline.Tracker().Current()
	resp := statusResponse{
		State:      snap.State.String(),
		Generation: snap.Generation,
		Result:     snap.Result,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	writeJSON(w, resp)
}

// Predict classifies a pre-flattened tensor supplied as JSON.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Image) != h.meta.InputLen() {
		http.Error(w, fmt.Sprintf("Expected %d values, got %d", h.meta.InputLen(), len(req.Image)),
			http.StatusBadRequest)
		return
	}
	result, err := h.pipeline.ClassifyTensor(r.Context(), req.Image)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// PredictFromImage classifies an uploaded image file (multipart field
// "image").
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.log.Infof("Received file: %v, size: %v bytes", header.Filename, header.Size)

	img, err := preprocess.DecodeImage(file)
	if err != nil {
		http.Error(w, "Invalid image format. Supported: JPEG, PNG, GIF", http.StatusBadRequest)
		return
	}

	result, err := h.pipeline.ClassifyImage(r.Context(), img)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// writeError maps pipeline error kinds to HTTP statuses. Every failure is
// local to its request; the server keeps running.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var shapeErr *preprocess.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		http.Error(w, shapeErr.Error(), http.StatusBadRequest)
	case errors.Is(err, preprocess.ErrImageDecode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrRunTimeout):
		http.Error(w, "Inference timed out", http.StatusGatewayTimeout)
	case errors.Is(err, model.ErrEngineLoad):
		http.Error(w, "Model failed to load", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}
