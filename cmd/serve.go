package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jsphweid/midigen/codec"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/pipeline"
	"github.com/jsphweid/midigen/sampler"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 16 << 20
	// resolution of the decoded file, 0 for SMPTE timing
	TicksPerQuarterHeader = "X-Ticks-Per-Quarter"
)

var generator *pipeline.Generator

func init() {
	serveCmd.Flags().StringVar(&cfg.ServeAddr, "addr", cfg.ServeAddr, "listen address")
	addGeneratorFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [midi-dir]",
	Short: "Serves the HTTP API",
	Long: `Serves conversion endpoints and, when midi-dir is given, generation
from the corpus under it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := LoadServeFiles(cmd.Context(), args[0]); err != nil {
				return err
			}
		}
		return serve(cmd.Context())
	},
}

// LoadServeFiles builds the generator used by /generate and /vocabulary.
func LoadServeFiles(ctx context.Context, dir string) error {
	g, err := loadGenerator(ctx, dir)
	if err != nil {
		return err
	}
	generator = g
	return nil
}

func Router() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/decode", HandleDecode).Methods("POST")
	router.HandleFunc("/encode", HandleEncode).Methods("POST")
	router.HandleFunc("/generate", HandleGenerate).Methods("POST")
	router.HandleFunc("/vocabulary", HandleVocabulary).Methods("GET")
	return cors.Default().Handler(router)
}

func serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving", zap.String("addr", cfg.ServeAddr), zap.Bool("generate", generator != nil))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, codec.ErrMalformedEvent),
		errors.Is(err, sampler.ErrInvalidTemperature),
		errors.Is(err, sampler.ErrInvalidWindow),
		errors.Is(err, pipeline.ErrInvalidSteps):
		return http.StatusBadRequest
	case errors.Is(err, sampler.ErrPredictorContractViolation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not read request body"))
		return nil, false
	}
	return body, true
}

func HandleDecode(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	s, err := codec.ReadSMF(body)
	if err != nil {
		// anything gomidi cannot read is the client's fault here
		writeError(w, http.StatusBadRequest, err)
		return
	}
	score, err := codec.FromSMF(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dat, err := codec.MarshalScore(score)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(TicksPerQuarterHeader, strconv.Itoa(int(codec.Resolution(s))))
	w.Write(dat)
}

func HandleEncode(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	score, err := codec.UnmarshalScore(body)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	dat, err := codec.Encode(score, codec.Options{TicksPerQuarter: cfg.TicksPerQuarter})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Write(dat)
}

func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if generator == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no corpus loaded"))
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var input model.GenerateRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not unmarshal request body"))
			return
		}
	}

	gen, err := generator.Run(r.Context(), input)
	if err != nil {
		logger.Warn("Generation failed", zap.Error(err))
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.GenerateResponse{
		Id:     gen.Id,
		Tokens: gen.Tokens,
		Midi:   gen.Midi,
	})
}

func HandleVocabulary(w http.ResponseWriter, r *http.Request) {
	if generator == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no corpus loaded"))
		return
	}
	v := generator.Vocabulary()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.VocabularyResponse{Size: v.Size(), Tokens: v.Tokens()})
}
