package tts

// Voice is a prebuilt provider voice.
type Voice struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Gender      string `json:"gender"`
}

const (
	female = "female"
	male   = "male"
)

var catalog = []Voice{
	{"Achernar", "Soft", female},
	{"Achird", "Friendly", female},
	{"Algenib", "Gravelly", male},
	{"Algieba", "Smooth", female},
	{"Alnilam", "Firm", male},
	{"Aoede", "Breezy", female},
	{"Autonoe", "Bright", female},
	{"Callirrhoe", "Easy-going", female},
	{"Charon", "Informative", male},
	{"Despina", "Smooth", female},
	{"Enceladus", "Breathy", male},
	{"Erinome", "Clear", female},
	{"Fenrir", "Excitable", male},
	{"Gacrux", "Mature", male},
	{"Iapetus", "Clear", male},
	{"Kore", "Firm", female},
	{"Laomedeia", "Upbeat", female},
	{"Leda", "Youthful", female},
	{"Orus", "Firm", male},
	{"Puck", "Upbeat", male},
	{"Pulcherrima", "Forward", female},
	{"Rasalgethi", "Informative", male},
	{"Sadachbia", "Lively", female},
	{"Sadaltager", "Knowledgeable", male},
	{"Schedar", "Even", female},
	{"Sulafat", "Warm", female},
	{"Umbriel", "Easy-going", male},
	{"Vindemiatrix", "Gentle", female},
	{"Zephyr", "Bright", female},
	{"Zubenelgenubi", "Casual", male},
}

// Catalog returns the known prebuilt voices sorted by name. It is for
// display only; requests may name voices outside it.
func Catalog() []Voice {
	out := make([]Voice, len(catalog))
	copy(out, catalog)
	return out
}

// KnownVoice reports whether name is in the catalog.
func KnownVoice(name string) bool {
	for _, v := range catalog {
		if v.Name == name {
			return true
		}
	}
	return false
}
