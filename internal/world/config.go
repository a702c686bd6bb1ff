package world

const (
	DefaultCols = 8
	DefaultRows = 6
)

// Config sizes the battlefield grid.
type Config struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	if normalized.Cols <= 0 {
		normalized.Cols = DefaultCols
	}
	if normalized.Rows <= 0 {
		normalized.Rows = DefaultRows
	}
	return normalized
}
