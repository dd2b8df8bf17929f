package propgen

type propsResponse struct {
	Sport       string `json:"sport"`
	GeneratedAt string `json:"generatedAt"`
	Props       []prop `json:"props" validate:"required,dive"`
}

type prop struct {
	PlayerName string   `json:"playerName" validate:"required"`
	TeamName   string   `json:"teamName" validate:"required"`
	Market     string   `json:"market" validate:"required"`
	Line       *float64 `json:"line" validate:"required"`
	Pick       string   `json:"pick" validate:"required"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=100"`
}
