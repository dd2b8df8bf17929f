package propmarket

type projectionsResponse struct {
	Data []projection `json:"data" validate:"required,dive"`
}

type projection struct {
	ID         string   `json:"id"`
	Player     player   `json:"player"`
	StatType   string   `json:"stat_type" validate:"required"`
	Line       *float64 `json:"line" validate:"required"`
	Side       string   `json:"side" validate:"required"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=100"`
}

type player struct {
	Name string `json:"name" validate:"required"`
	Team string `json:"team" validate:"required"`
}
