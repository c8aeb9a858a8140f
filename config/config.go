package config

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"11333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"RESERVSTACK_POSTGRES_HOST,required"`
	Port            string `env:"RESERVSTACK_POSTGRES_PORT,required"`
	User            string `env:"RESERVSTACK_POSTGRES_USER,required"`
	DBName          string `env:"RESERVSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"RESERVSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"RESERVSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"RESERVSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"RESERVSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"RESERVSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"RESERVSTACK_POSTGRES_SSL_MODE" envDefault:"require"`
}

type IngestionConfig struct {
	PollIntervalMinutes int  `env:"INGESTION_POLL_INTERVAL_MINUTES" envDefault:"10"`
	ScheduledChecksOn   bool `env:"INGESTION_SCHEDULED_CHECKS_ON" envDefault:"true"`
}
