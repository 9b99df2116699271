package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"apartment-finder/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	OfficeLat float64
	OfficeLon float64
	RadiusMi  float64
	MinRent   int
	MaxRent   int

	PlaceTypes    []string
	PlacesRadiusM int

	RapidAPIKey  string
	OpenAIAPIKey string
	PlacesAPIKey string
	OpenAIModel  string

	AppPassword       string
	SessionSigningKey string

	ListingHosts      []string
	ListingScheme     string
	ListingMaxResults int
	ListingPageDelay  time.Duration
	ListingTimeout    time.Duration

	GoogleMapsBaseURL string
	RoutingTimeout    time.Duration
	PlacesTimeout     time.Duration

	OpenAIBaseURL      string
	RankingTimeout     time.Duration
	RankingMaxListings int
	RankingMaxAttempts int
	RankingBaseDelay   time.Duration

	BindAddr      string
	CSVOutputPath string
	LogLevel      string
	LogFormat     string
}

var defaults = map[string]any{
	"office_lat":           34.0683,
	"office_lon":           -118.4023,
	"radius_mi":            2.0,
	"min_rent":             2100,
	"max_rent":             3000,
	"default_place_types":  "bakery",
	"places_radius_m":      800,
	"openai_model":         "o3",
	"listing_hosts":        "zillow-com1.p.rapidapi.com,zillow-com.p.rapidapi.com,zillow.p.rapidapi.com",
	"listing_scheme":       "https",
	"listing_max_results":  100,
	"listing_page_delay":   "500ms",
	"listing_timeout":      "20s",
	"google_maps_base_url": "https://maps.googleapis.com",
	"routing_timeout":      "10s",
	"places_timeout":       "10s",
	"openai_base_url":      "https://api.openai.com",
	"ranking_timeout":      "30s",
	"ranking_max_listings": 20,
	"ranking_max_attempts": 3,
	"ranking_base_delay":   "1s",
	"bind_addr":            ":8501",
	"csv_output_path":      "./output/apartments.csv",
	"log_level":            "info",
	"log_format":           "console",
}

// Load reads the .env file (if any) and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	c := &Config{
		OfficeLat: v.GetFloat64("office_lat"),
		OfficeLon: v.GetFloat64("office_lon"),
		RadiusMi:  v.GetFloat64("radius_mi"),
		MinRent:   v.GetInt("min_rent"),
		MaxRent:   v.GetInt("max_rent"),

		PlaceTypes:    splitAndTrim(v.GetString("default_place_types")),
		PlacesRadiusM: v.GetInt("places_radius_m"),

		RapidAPIKey:  v.GetString("rapidapi_key"),
		OpenAIAPIKey: v.GetString("openai_api_key"),
		PlacesAPIKey: v.GetString("places_api_key"),
		OpenAIModel:  v.GetString("openai_model"),

		AppPassword:       v.GetString("app_password"),
		SessionSigningKey: v.GetString("session_signing_key"),

		ListingHosts:      splitAndTrim(v.GetString("listing_hosts")),
		ListingScheme:     v.GetString("listing_scheme"),
		ListingMaxResults: v.GetInt("listing_max_results"),
		ListingPageDelay:  v.GetDuration("listing_page_delay"),
		ListingTimeout:    v.GetDuration("listing_timeout"),

		GoogleMapsBaseURL: strings.TrimRight(v.GetString("google_maps_base_url"), "/"),
		RoutingTimeout:    v.GetDuration("routing_timeout"),
		PlacesTimeout:     v.GetDuration("places_timeout"),

		OpenAIBaseURL:      strings.TrimRight(v.GetString("openai_base_url"), "/"),
		RankingTimeout:     v.GetDuration("ranking_timeout"),
		RankingMaxListings: v.GetInt("ranking_max_listings"),
		RankingMaxAttempts: v.GetInt("ranking_max_attempts"),
		RankingBaseDelay:   v.GetDuration("ranking_base_delay"),

		BindAddr:      v.GetString("bind_addr"),
		CSVOutputPath: v.GetString("csv_output_path"),
		LogLevel:      strings.ToLower(v.GetString("log_level")),
		LogFormat:     strings.ToLower(v.GetString("log_format")),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.OfficeLat < -90 || c.OfficeLat > 90 {
		return fmt.Errorf("OFFICE_LAT must be within [-90, 90], got %v", c.OfficeLat)
	}
	if c.OfficeLon < -180 || c.OfficeLon > 180 {
		return fmt.Errorf("OFFICE_LON must be within [-180, 180], got %v", c.OfficeLon)
	}
	if c.RadiusMi <= 0 {
		return errors.New("RADIUS_MI must be positive")
	}
	if c.MinRent <= 0 || c.MaxRent <= 0 {
		return errors.New("MIN_RENT and MAX_RENT must be positive")
	}
	if len(c.PlaceTypes) == 0 {
		return errors.New("DEFAULT_PLACE_TYPES must contain at least one category")
	}
	if c.PlacesRadiusM <= 0 {
		return errors.New("PLACES_RADIUS_M must be positive")
	}
	if len(c.ListingHosts) == 0 {
		return errors.New("LISTING_HOSTS must contain at least one host")
	}
	if c.ListingMaxResults <= 0 {
		return errors.New("LISTING_MAX_RESULTS must be positive")
	}
	if c.RankingMaxListings <= 0 {
		return errors.New("RANKING_MAX_LISTINGS must be positive")
	}
	if c.RankingMaxAttempts <= 0 {
		return errors.New("RANKING_MAX_ATTEMPTS must be positive")
	}

	var missing []string
	if c.RapidAPIKey == "" {
		missing = append(missing, "RAPIDAPI_KEY")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.PlacesAPIKey == "" {
		missing = append(missing, "PLACES_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Office returns the fixed office coordinate.
func (c *Config) Office() models.Coordinate {
	return models.Coordinate{Lat: c.OfficeLat, Lon: c.OfficeLon}
}

// DefaultSearch returns the search request built from configured defaults.
func (c *Config) DefaultSearch() models.SearchConfig {
	types := make([]string, len(c.PlaceTypes))
	copy(types, c.PlaceTypes)
	return models.SearchConfig{
		RadiusMi:   c.RadiusMi,
		MinRent:    c.MinRent,
		MaxRent:    c.MaxRent,
		PlaceTypes: types,
		Office:     c.Office(),
	}
}

// ListingEndpoints returns the base URLs of the listing API hosts, in
// failover order.
func (c *Config) ListingEndpoints() []string {
	out := make([]string, 0, len(c.ListingHosts))
	for _, h := range c.ListingHosts {
		if strings.Contains(h, "://") {
			out = append(out, strings.TrimRight(h, "/"))
			continue
		}
		out = append(out, c.ListingScheme+"://"+h)
	}
	return out
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
