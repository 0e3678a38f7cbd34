package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/window"
	"github.com/pkg/errors"
)

type remoteRequest struct {
	Window     model.Window `json:"window"`
	Normalized []float64    `json:"normalized"`
}

type remoteResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// Remote asks an externally hosted model for each distribution. The
// request carries the raw indices and the same window divided by the
// vocabulary size, so the server can use whichever its network expects.
type Remote struct {
	URL       string
	VocabSize int
	Client    *http.Client
}

func NewRemote(url string, vocabSize int) *Remote {
	return &Remote{
		URL:       url,
		VocabSize: vocabSize,
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Remote) Predict(ctx context.Context, w model.Window) ([]float64, error) {
	body, err := json.Marshal(remoteRequest{
		Window:     w,
		Normalized: window.Normalize(w, r.VocabSize),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not encode predict request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "could not build predict request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "predict request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(fmt.Sprintf("predictor returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	}

	var res remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "could not decode predict response")
	}
	return res.Probabilities, nil
}
