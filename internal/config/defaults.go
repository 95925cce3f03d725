package config

const (
	defaultConfigPath  = "~/.config/osm-autolink/config.toml"
	projectConfigName  = "osm-autolink.toml"
	databaseFileName   = "autolink.db"
	lockFileName       = "autolink.lock"
	defaultDataDir     = "~/.local/share/osm-autolink"
	defaultLogDir      = "~/.local/share/osm-autolink/logs"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultOSMAPIURL   = "https://api.openstreetmap.org/api/0.6"
	defaultComment     = "Dodanie brakujących linków stron internetowych"
	defaultFetchLimit  = 8
	defaultOSMTimeout  = 30
	defaultUploadLimit = 180

	defaultOverpassURL      = "https://overpass-api.de/api/interpreter"
	defaultAreaRelationID   = 1668045
	defaultOverpassTimeout  = 180
	defaultNominatimURL     = "https://nominatim.openstreetmap.org"
	defaultNominatimBatch   = 50
	defaultCity             = "Radom"
	defaultProvince         = "Mazowieckie"
	defaultPerplexityURL    = "https://api.perplexity.ai/chat/completions"
	defaultPerplexityModel  = "sonar-reasoning"
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultLLMTemperature   = 0.1
	defaultLLMTimeout       = 120
	defaultRequestsPerMin   = 20
	defaultSafetyMargin     = 5
	defaultWindowSeconds    = 60
	maxNominatimBatch       = 50
)

// Link finder providers accepted by llm.provider.
const (
	ProviderPerplexity = "perplexity"
	ProviderGemini     = "gemini"
)

var defaultRequiredKeys = []string{"amenity", "shop", "craft", "office"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		OSM: OSM{
			APIURL:                defaultOSMAPIURL,
			ChangesetComment:      defaultComment,
			FetchConcurrency:      defaultFetchLimit,
			RequestTimeoutSeconds: defaultOSMTimeout,
			UploadTimeoutSeconds:  defaultUploadLimit,
		},
		Overpass: Overpass{
			InterpreterURL: defaultOverpassURL,
			AreaRelationID: defaultAreaRelationID,
			TimeoutSeconds: defaultOverpassTimeout,
			RequiredKeys:   append([]string(nil), defaultRequiredKeys...),
		},
		Nominatim: Nominatim{
			URL:       defaultNominatimURL,
			BatchSize: defaultNominatimBatch,
		},
		Discovery: Discovery{
			DefaultCity:     defaultCity,
			DefaultProvince: defaultProvince,
		},
		LLM: LLM{
			Provider:       ProviderPerplexity,
			BaseURL:        defaultPerplexityURL,
			Model:          defaultPerplexityModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeout,
			GeminiModel:    defaultGeminiModel,
		},
		Enrichment: Enrichment{
			RequestsPerMinute: defaultRequestsPerMin,
			SafetyMargin:      defaultSafetyMargin,
			WindowSeconds:     defaultWindowSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
