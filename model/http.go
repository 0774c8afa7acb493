package model

type GenerateRequestBody struct {
	MaxNotes      int     `json:"max_notes"`
	Tempo         float64 `json:"tempo"`
	Key           string  `json:"key"`
	Mode          Mode    `json:"mode"`
	Reinforcement float64 `json:"reinforcement"`
	EnforceKey    bool    `json:"enforce_key"`
	Recursive     bool    `json:"recursive"`
}

type ModelResponse struct {
	Order       int `json:"order"`
	Contexts    int `json:"contexts"`
	Transitions int `json:"transitions"`
	TotalWeight int `json:"total_weight"`
}

type TrainResponse struct {
	Files       int `json:"files"`
	Order       int `json:"order"`
	Contexts    int `json:"contexts"`
	Transitions int `json:"transitions"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
