package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BusDriverRedis = "redis"
	BusDriverNATS  = "nats"
)

type Config struct {
	LogLevel          string     `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string     `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SQLiteStoragePath string     `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./data/wordle_battle.db"`
	JWTSecretKey      string     `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY"`
	Redis             Redis      `yaml:"redis"`
	Bus               Bus        `yaml:"bus"`
	Game              Game       `yaml:"game"`
	Words             Words      `yaml:"words"`
	Matchmaker        Matchmaker `yaml:"matchmaker"`
}

type Redis struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	RoomTTL  time.Duration `yaml:"room-ttl" env:"REDIS_ROOM_TTL" env-default:"2h"`
}

type Bus struct {
	Driver      string        `yaml:"driver" env:"BUS_DRIVER" env-default:"redis"`
	NATSURL     string        `yaml:"nats-url" env:"BUS_NATS_URL" env-default:"nats://localhost:4222"`
	RetryBudget time.Duration `yaml:"retry-budget" env:"BUS_RETRY_BUDGET" env-default:"1m"`
}

type Game struct {
	WordLength        int           `yaml:"word-length" env:"GAME_WORD_LENGTH" env-default:"5"`
	MatchDuration     time.Duration `yaml:"match-duration" env:"GAME_MATCH_DURATION" env-default:"120s"`
	WinScore          int64         `yaml:"win-score" env:"GAME_WIN_SCORE" env-default:"0"`
	RequireDictionary bool          `yaml:"require-dictionary" env:"GAME_REQUIRE_DICTIONARY" env-default:"false"`
}

type Words struct {
	AnswersFile string `yaml:"answers-file" env:"WORDS_ANSWERS_FILE"`
	AllowedFile string `yaml:"allowed-file" env:"WORDS_ALLOWED_FILE"`
}

type Matchmaker struct {
	PollTimeout  time.Duration `yaml:"poll-timeout" env:"MATCHMAKER_POLL_TIMEOUT" env-default:"5s"`
	RequeueDelay time.Duration `yaml:"requeue-delay" env:"MATCHMAKER_REQUEUE_DELAY" env-default:"1s"`
	RetryBudget  time.Duration `yaml:"retry-budget" env:"MATCHMAKER_RETRY_BUDGET" env-default:"2m"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads the yaml file at path, or only the environment when path is empty.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err = config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (that *Config) validate() error {
	switch that.Bus.Driver {
	case BusDriverRedis, BusDriverNATS:
	default:
		return fmt.Errorf("unknown bus driver %q", that.Bus.Driver)
	}

	if that.Game.WordLength <= 0 {
		return fmt.Errorf("word length must be positive, got %d", that.Game.WordLength)
	}

	if that.Game.MatchDuration <= 0 {
		return fmt.Errorf("match duration must be positive, got %s", that.Game.MatchDuration)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
