package db

import (
	"fmt"
	"net"
	"strings"
	"time"

	drv "github.com/go-sql-driver/mysql"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolSettings bounds the database/sql pool underneath gorm.
type PoolSettings struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

func BuildDSN(cfg *config.Config) string {
	mc := drv.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	mc.Net, mc.Addr = address(cfg)
	return mc.FormatDSN()
}

func address(cfg *config.Config) (network, addr string) {
	host := strings.TrimSpace(cfg.DBHost)

	// Prefer Cloud SQL unix socket when INSTANCE_CONNECTION_NAME is provided.
	switch {
	case cfg.InstanceConnectionName != "":
		return "unix", "/cloudsql/" + cfg.InstanceConnectionName
	case strings.HasPrefix(host, "tcp(") && strings.HasSuffix(host, ")"):
		return "tcp", host[len("tcp(") : len(host)-1]
	case strings.HasPrefix(host, "unix(") && strings.HasSuffix(host, ")"):
		return "unix", host[len("unix(") : len(host)-1]
	case strings.HasPrefix(host, "/"):
		return "unix", host
	default:
		return "tcp", net.JoinHostPort(host, cfg.DBPort)
	}
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	return Open(BuildDSN(cfg), PoolSettings{
		MaxOpen:     cfg.DBMaxConnections,
		MaxIdle:     cfg.DBMaxIdleConnections,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
}

func Open(dsn string, ps PoolSettings) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(mysql.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if ps.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(ps.MaxLifetime)
	}
	if ps.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(ps.MaxIdle)
	}
	if ps.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(ps.MaxOpen)
	}

	return db, nil
}
