package db

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
)

// ProvisionError reports the table whose creation failed.
type ProvisionError struct {
	Table string
	Err   error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision table %s: %v", e.Table, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

type tableDDL struct {
	name string
	ddl  string
}

// Referenced tables come first. Plain CREATE ... IF NOT EXISTS keeps
// repeated runs from altering an existing definition.
var schema = []tableDDL{
	{
		name: "users",
		ddl: `CREATE TABLE IF NOT EXISTS users (
    id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    username VARCHAR(100) NOT NULL,
    email VARCHAR(100) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    phone VARCHAR(15) UNIQUE,
    profile_picture VARCHAR(255),
    location VARCHAR(255),
    join_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_login TIMESTAMP NULL,
    is_verified TINYINT(1) DEFAULT 0,
    is_active TINYINT(1) DEFAULT 1,
    rating DECIMAL(2,1) DEFAULT 0.0,
    ads_posted INT DEFAULT 0,
    itemsBought INT DEFAULT 0,
    favorites INT DEFAULT 0,
    bio VARCHAR(255)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	{
		name: "products",
		ddl: `CREATE TABLE IF NOT EXISTS products (
    id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    username VARCHAR(100) NULL,
    description TEXT NULL,
    category VARCHAR(255) NULL,
    price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
    image_url VARCHAR(512) NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_products_category (category),
    KEY idx_products_image_url (image_url)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

// Tables lists provisioned tables in creation order.
func Tables() []string {
	names := make([]string, 0, len(schema))
	for _, t := range schema {
		names = append(names, t.name)
	}
	return names
}

// EnsureSchema creates every required table that does not exist yet.
// It stops at the first failure and does not retry.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	for _, t := range schema {
		err := pool.Do(ctx, func(tx *gorm.DB) error {
			return tx.Exec(t.ddl).Error
		})
		if err != nil {
			log.Printf("[schema] table=%s stage=create_fail err=%v", t.name, err)
			return &ProvisionError{Table: t.name, Err: err}
		}
		log.Printf("[schema] table=%s stage=ready", t.name)
	}
	return nil
}
