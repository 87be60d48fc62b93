package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/178inaba/duty-scheduler/interval"
	"github.com/178inaba/duty-scheduler/rotation"
	"github.com/joho/godotenv"
)

const conductorWindowPrefix = "APPOINTMENT_WINDOW_"

type MySQL struct {
	User     string
	Password string
	Protocol string
	Address  string
	DBName   string
}

type Config struct {
	MySQL              MySQL
	Port               string
	SlackToken         string
	SlackSigningSecret string
	Location           *time.Location
	CandidateCount     int
	Window             interval.Window
	ConductorWindows   map[string]interval.Window
	TemplatesPath      string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Load .env: %v.", err)
	}

	return fromEnv(os.Environ())
}

func fromEnv(environ []string) (*Config, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	get := func(key, def string) string {
		if v := env[key]; v != "" {
			return v
		}
		return def
	}

	c := &Config{
		MySQL: MySQL{
			User:     env["MYSQL_USER"],
			Password: env["MYSQL_PASSWORD"],
			Protocol: get("MYSQL_PROTOCOL", "tcp"),
			Address:  env["MYSQL_ADDRESS"],
			DBName:   env["MYSQL_DB_NAME"],
		},
		Port:               get("PORT", "8080"),
		SlackToken:         env["SLACK_TOKEN"],
		SlackSigningSecret: env["SLACK_SIGNING_SECRET"],
		TemplatesPath:      env["MESSAGE_TEMPLATES_PATH"],
		ConductorWindows:   make(map[string]interval.Window),
	}

	loc, err := time.LoadLocation(get("TIME_ZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	c.Location = loc

	if c.CandidateCount, err = strconv.Atoi(get("CANDIDATE_COUNT", strconv.Itoa(rotation.DefaultCount))); err != nil || c.CandidateCount <= 0 {
		return nil, fmt.Errorf("invalid CANDIDATE_COUNT %q", env["CANDIDATE_COUNT"])
	}

	start, err := interval.ParseClock(get("APPOINTMENT_WINDOW_START", "11:00"))
	if err != nil {
		return nil, fmt.Errorf("parse APPOINTMENT_WINDOW_START: %w", err)
	}
	end, err := interval.ParseClock(get("APPOINTMENT_WINDOW_END", "12:00"))
	if err != nil {
		return nil, fmt.Errorf("parse APPOINTMENT_WINDOW_END: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("appointment window ends before it starts")
	}
	c.Window = interval.Window{Start: start, End: end}

	for k, v := range env {
		conductor, ok := strings.CutPrefix(k, conductorWindowPrefix)
		if !ok || conductor == "START" || conductor == "END" || conductor == "" {
			continue
		}
		w, err := interval.ParseWindow(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", k, err)
		}
		c.ConductorWindows[titleCase(conductor)] = w
	}

	return c, nil
}

// HasMySQL reports whether a database is configured.
func (c *Config) HasMySQL() bool {
	return c.MySQL.Address != "" && c.MySQL.DBName != ""
}

// SchedulerOptions turns the window settings into scheduler options.
func (c *Config) SchedulerOptions() []interval.Option {
	opts := []interval.Option{
		interval.WithWindow(c.Window),
	}
	for conductor, w := range c.ConductorWindows {
		opts = append(opts, interval.WithConductorWindow(conductor, w))
	}
	return opts
}

// titleCase maps BISHOP to Bishop, matching how conductors are stored.
func titleCase(s string) string {
	s = strings.ToLower(s)
	return strings.ToUpper(s[:1]) + s[1:]
}
