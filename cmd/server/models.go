package main

// predictionMeta describes how a prediction was produced.
type predictionMeta struct {
	Mode   string `json:"mode"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// predictionResponse is the body of POST /predict. Probability is present
// on fallback-path responses only.
type predictionResponse struct {
	Prediction  int            `json:"prediction"`
	Probability *float64       `json:"probability,omitempty"`
	Meta        predictionMeta `json:"meta"`
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelPath   string `json:"model_path"`
	ModelError  string `json:"model_error,omitempty"`
}
