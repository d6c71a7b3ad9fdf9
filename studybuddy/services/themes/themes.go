package themes

import (
	"fmt"

	"studybuddy/studybuddy/types"
)

type Palette struct {
	Name        string `json:"name"`
	Primary     string `json:"primary"`
	Background  string `json:"background"`
	SecondaryBG string `json:"secondary_bg"`
	Text        string `json:"text"`
}

// Skin is a companion page look. Image is optional.
type Skin struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Sidebar    string `json:"sidebar"`
	Button     string `json:"button"`
	ButtonText string `json:"button_text"`
	Image      string `json:"image,omitempty"`
}

const Default = "Light"

var palettes = []Palette{
	{"Light", "#000000", "#FFFFFF", "#F0F2F6", "#000000"},
	{"Dark", "#FFFFFF", "#0E1117", "#1C1C1C", "#FFFFFF"},
	{"Red", "#FFFFFF", "#7B241C", "#A93226", "#FFFFFF"},
	{"Blue", "#FFFFFF", "#154360", "#1F618D", "#FFFFFF"},
	{"Green", "#FFFFFF", "#145A32", "#1E8449", "#FFFFFF"},
	{"Pink", "#FFFFFF", "#880E4F", "#C2185B", "#FFFFFF"},
	{"Light Blue", "#000000", "#E1F5FE", "#B3E5FC", "#01579B"},
	{"Lavender", "#FFFFFF", "#4A148C", "#6A1B9A", "#FFFFFF"},
	{"Yellow", "#000000", "#FFFDE7", "#FFF9C4", "#F57F17"},
}

var skins = []Skin{
	{Name: "Spiderman", Background: "#a30000", Text: "white", Sidebar: "rgba(0, 86, 179, 0.7)", Button: "#0056b3", ButtonText: "white",
		Image: "https://i.pinimg.com/originals/c8/15/33/c815332f813a303dd5347f631122a16d.png"},
	{Name: "Barbie", Background: "#f9d9ea", Text: "#5b0d38", Sidebar: "#fce4ec", Button: "#e91e63", ButtonText: "white"},
	{Name: "Football", Background: "#006400", Text: "white", Sidebar: "#2e8b57", Button: "#ffffff", ButtonText: "#006400",
		Image: "https://www.transparenttextures.com/patterns/diagmonds.png"},
	{Name: "Normal Dark", Background: "#0e1117", Text: "white", Sidebar: "#1c1c1c", Button: "#4a90e2", ButtonText: "white"},
	{Name: "Colorful", Background: "linear-gradient(to right top, #d16ba5, #aa8fd8, #69bff8, #5ffbf1)", Text: "#000000",
		Sidebar: "rgba(255, 255, 255, 0.7)", Button: "#ff4b4b", ButtonText: "white"},
	{Name: "Default Light", Background: "#ffffff", Text: "#31333f", Sidebar: "#f0f2f6", Button: "#ff4b4b", ButtonText: "white"},
}

// Catalog is what GET /themes returns.
type Catalog struct {
	Palettes []Palette `json:"palettes"`
	Skins    []Skin    `json:"skins"`
	Default  string    `json:"default"`
}

func All() Catalog {
	return Catalog{
		Palettes: append([]Palette(nil), palettes...),
		Skins:    append([]Skin(nil), skins...),
		Default:  Default,
	}
}

func PaletteByName(name string) (Palette, bool) {
	for _, p := range palettes {
		if p.Name == name {
			return p, true
		}
	}
	return Palette{}, false
}

func SkinByName(name string) (Skin, bool) {
	for _, s := range skins {
		if s.Name == name {
			return s, true
		}
	}
	return Skin{}, false
}

// Validate accepts any palette or skin name.
func Validate(name string) error {
	if _, ok := PaletteByName(name); ok {
		return nil
	}
	if _, ok := SkinByName(name); ok {
		return nil
	}
	return fmt.Errorf("%w: unknown theme %q", types.ErrInvalidInput, name)
}
