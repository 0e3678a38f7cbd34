package model

// GenerateRequest fields left nil fall back to the server's settings. An
// explicit value is always used as given.
type GenerateRequest struct {
	Steps       *int     `json:"steps,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	RandomSeed  uint64   `json:"random_seed"`
}

type GenerateResponse struct {
	Id     string  `json:"id"`
	Tokens []Token `json:"tokens"`
	Midi   []byte  `json:"midi"`
}

type VocabularyResponse struct {
	Size   int     `json:"size"`
	Tokens []Token `json:"tokens"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
