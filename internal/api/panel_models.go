package api

// PanelModel defines capabilities and defaults for a supported display panel
type PanelModel struct {
	Slug            string `json:"slug"`
	DisplayName     string `json:"display_name"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	DefaultLayout   string `json:"default_layout"`
	DefaultBaudRate int    `json:"default_baud_rate"`
	Description     string `json:"description"`
}

// SupportedPanelModels is the application-level registry of panel models
var SupportedPanelModels = map[string]PanelModel{
	"tft-800": {
		Slug:            "tft-800",
		DisplayName:     "800x480 TFT Dashboard",
		Width:           800,
		Height:          480,
		DefaultLayout:   "grid",
		DefaultBaudRate: 115200,
		Description:     "Standard 7-inch TFT running the grid firmware",
	},
	"tft-480": {
		Slug:            "tft-480",
		DisplayName:     "480x320 TFT Dashboard",
		Width:           480,
		Height:          320,
		DefaultLayout:   "grid",
		DefaultBaudRate: 115200,
		Description:     "Compact 3.5-inch TFT running the grid firmware",
	},
	"quad-7seg": {
		Slug:            "quad-7seg",
		DisplayName:     "Quad Seven-Segment Board",
		Width:           400,
		Height:          300,
		DefaultLayout:   "quad",
		DefaultBaudRate: 115200,
		Description:     "Four fixed two-digit numeric displays",
	},
	"led-matrix": {
		Slug:            "led-matrix",
		DisplayName:     "Four-Line LED Matrix",
		Width:           128,
		Height:          64,
		DefaultLayout:   "matrix",
		DefaultBaudRate: 115200,
		Description:     "Character matrix with four text lines",
	},
	"custom": {
		Slug:            "custom",
		DisplayName:     "Custom Firmware",
		DefaultLayout:   "custom",
		DefaultBaudRate: 115200,
		Description:     "Panel that draws itself; no preview geometry is computed",
	},
}

// GetPanelModel looks up a panel model by slug
func GetPanelModel(slug string) (PanelModel, bool) {
	model, ok := SupportedPanelModels[slug]
	return model, ok
}

// GetAllPanelModels returns a slice of all supported panel models
func GetAllPanelModels() []PanelModel {
	models := make([]PanelModel, 0, len(SupportedPanelModels))
	for _, model := range SupportedPanelModels {
		models = append(models, model)
	}
	return models
}
