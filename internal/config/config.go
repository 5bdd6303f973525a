package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

// GA 是遗传算法的默认参数，HTTP 请求中没有指定的参数使用这里的值
type GA struct {
	PopulationSize       int     `env:"POPULATION_SIZE" envDefault:"250"`
	MinGenerations       int     `env:"MIN_GENERATIONS" envDefault:"100"`
	MaxGenerations       int     `env:"MAX_GENERATIONS" envDefault:"0"` // relative 策略下 0 表示不设上限
	StopPolicy           string  `env:"STOP_POLICY" envDefault:"relative"`
	ConvergenceThreshold float64 `env:"CONVERGENCE_THRESHOLD" envDefault:"0.01"`
	MutationRate         float64 `env:"MUTATION_RATE" envDefault:"0.01"`
	MutationDecay        float64 `env:"MUTATION_DECAY" envDefault:"1.0"`
	EliteCount           int     `env:"ELITE_COUNT" envDefault:"0"`
	Workers              int     `env:"WORKERS" envDefault:"1"`
	Seed                 int64   `env:"SEED" envDefault:"0"` // 0 表示使用当前时间
	RunTimeout           int     `env:"RUN_TIMEOUT" envDefault:"600"`
}

func (g *GA) SchedulingParameters() domain.SchedulingParameters {
	return domain.SchedulingParameters{
		PopulationSize:       g.PopulationSize,
		MinGenerations:       g.MinGenerations,
		MaxGenerations:       g.MaxGenerations,
		StopPolicy:           g.StopPolicy,
		ConvergenceThreshold: g.ConvergenceThreshold,
		MutationRate:         g.MutationRate,
		MutationDecay:        g.MutationDecay,
		EliteCount:           g.EliteCount,
		Workers:              g.Workers,
		Seed:                 g.Seed,
	}
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`

		// 前端开发服务器默认运行在 5173 端口
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 小时，14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"password"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain  string `env:"USER_DOMAIN,required"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
		SMTP        struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		ProgressExpiration  int    `env:"PROGRESS_EXPIRATION" envDefault:"86400"`
	} `envPrefix:"REDIS_"`
	Worker struct {
		MetricsPort string `env:"METRICS_PORT" envDefault:"9091"`
	} `envPrefix:"WORKER_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	GA GA `envPrefix:"GA_"`
}

// loadDotEnv 读取当前目录下的 .env 文件，已经存在的环境变量不会被覆盖
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

// LoadGAConfig 只读取 GA_ 开头的环境变量，离线运行的 solve 不需要数据库等配置
func LoadGAConfig() (*GA, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &GA{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "GA_"}); err != nil {
		return nil, firstError(err)
	}

	return cfg, nil
}

func firstError(err error) error {
	aggErr := env.AggregateError{}
	if ok := errors.As(err, &aggErr); ok {
		// 只返回第一个错误使得日志更清晰
		return aggErr.Errors[0]
	}
	return err
}
