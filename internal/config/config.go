package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Classroom is a geofenced room attendance can be taken in.
type Classroom struct {
	Name         string  `mapstructure:"name" json:"name"`
	Latitude     float64 `mapstructure:"lat" json:"lat"`
	Longitude    float64 `mapstructure:"lng" json:"lng"`
	RadiusMeters float64 `mapstructure:"radius_meters" json:"radius_meters"`
}

// Attendance groups the timing and environment rules of the scan protocol.
type Attendance struct {
	TokenValidity     time.Duration
	ScanBuffer        time.Duration
	SessionDuration   time.Duration
	TokenGrace        time.Duration
	DeviceCooldown    time.Duration
	SweepInterval     time.Duration
	AllowedIPPrefixes []string
	Classrooms        map[string]Classroom
}

// Classroom looks up a classroom by id. Ids are matched case-insensitively.
func (a Attendance) Classroom(id string) (Classroom, bool) {
	id = strings.TrimSpace(id)
	if room, ok := a.Classrooms[id]; ok {
		return room, true
	}
	room, ok := a.Classrooms[ClassroomKey(id)]
	return room, ok
}

// ClassroomKey is the canonical form of a classroom id.
func ClassroomKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// TokenLifetime is how long a token may still be accepted after issue.
func (a Attendance) TokenLifetime() time.Duration {
	return a.TokenValidity + a.ScanBuffer
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	BaseURL       string
	DatabaseURL   string
	SQLitePath    string
	RedisURL      string
	NATSURL       string
	JWTSecret     string
	JWTTTL        time.Duration
	ScanRateLimit int
	Attendance    Attendance
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// DefaultClassrooms is used when no classroom table is configured.
func DefaultClassrooms() map[string]Classroom {
	return map[string]Classroom{
		"6-2": {Name: "Room 6-2", Latitude: 47.0617782, Longitude: 28.8679226, RadiusMeters: 50},
	}
}

// Load reads configuration values from environment variables, an optional
// .env file and an optional config.yaml.
func Load() (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// LoadStorage reads the same sources as Load but does not require the JWT
// secret. Offline tools that only touch the database use it.
func LoadStorage() (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	return build(v)
}

func newViper() (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PREZENTA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg, err := build(v)
	if err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	return cfg, nil
}

func build(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Prezenta API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("database.sqlite_path", "data/attendance.db")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("scan.rate_limit", 30)
	v.SetDefault("attendance.token_validity", "10s")
	v.SetDefault("attendance.scan_buffer", "7s")
	v.SetDefault("attendance.session_duration", "40s")
	v.SetDefault("attendance.token_grace", "10s")
	v.SetDefault("attendance.device_cooldown", "2m")
	v.SetDefault("attendance.sweep_interval", "1s")
	v.SetDefault("attendance.allowed_ip_prefixes", "81.180.")

	durations := map[string]*time.Duration{}
	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		BaseURL:       strings.TrimRight(v.GetString("app.base_url"), "/"),
		DatabaseURL:   v.GetString("database.url"),
		SQLitePath:    v.GetString("database.sqlite_path"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		JWTSecret:     v.GetString("jwt.secret"),
		ScanRateLimit: v.GetInt("scan.rate_limit"),
	}

	durations["jwt.ttl"] = &cfg.JWTTTL
	durations["attendance.token_validity"] = &cfg.Attendance.TokenValidity
	durations["attendance.scan_buffer"] = &cfg.Attendance.ScanBuffer
	durations["attendance.session_duration"] = &cfg.Attendance.SessionDuration
	durations["attendance.token_grace"] = &cfg.Attendance.TokenGrace
	durations["attendance.device_cooldown"] = &cfg.Attendance.DeviceCooldown
	durations["attendance.sweep_interval"] = &cfg.Attendance.SweepInterval

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed < 0 {
			return Config{}, fmt.Errorf("invalid %s: must not be negative", key)
		}
		*target = parsed
	}

	cfg.Attendance.AllowedIPPrefixes = stringList(v, "attendance.allowed_ip_prefixes")

	// viper lower-cases map keys, so ids are stored in ClassroomKey form and
	// looked up through Attendance.Classroom.
	configured := map[string]Classroom{}
	if v.IsSet("attendance.classrooms") {
		if err := v.UnmarshalKey("attendance.classrooms", &configured); err != nil {
			return Config{}, fmt.Errorf("invalid attendance.classrooms: %w", err)
		}
	}
	if len(configured) == 0 {
		configured = DefaultClassrooms()
	}
	classrooms := make(map[string]Classroom, len(configured))
	for id, room := range configured {
		key := ClassroomKey(id)
		if room.RadiusMeters <= 0 {
			return Config{}, fmt.Errorf("classroom %s: radius_meters must be positive", id)
		}
		if _, dup := classrooms[key]; dup {
			return Config{}, fmt.Errorf("classroom %s: configured more than once", id)
		}
		if room.Name == "" {
			room.Name = id
		}
		classrooms[key] = room
	}
	cfg.Attendance.Classrooms = classrooms

	if cfg.ScanRateLimit <= 0 {
		cfg.ScanRateLimit = 30
	}

	return cfg, nil
}

func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if value, ok := v.Get(key).(string); ok {
		raw = strings.Split(value, ",")
	} else {
		raw = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
