package postgresdriver

import (
	"context"
	"errors"
	"time"

	"github.com/shopbench/shopbench-go/workload"
)

const logActionSchema = "ensure schema"

// schemaStatements create the four tables and two secondary indexes.
// Every statement is a no-op when the object already exists, so EnsureSchema
// may be invoked concurrently by multiple harness instances.
//
// The CHECK constraints back the data invariants: stock never goes negative
// and orders always consume a positive quantity.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cities (
		city_id INT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		city_name VARCHAR(255) NOT NULL UNIQUE)`,

	`CREATE TABLE IF NOT EXISTS products (
		product_id INT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		product_name VARCHAR(255) NOT NULL UNIQUE,
		price DECIMAL(10,2) NOT NULL CHECK (price > 0),
		stock INT NOT NULL DEFAULT 100 CHECK (stock >= 0))`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id INT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		age INT,
		city_id INT REFERENCES cities (city_id))`,

	`CREATE TABLE IF NOT EXISTS orders (
		order_id INT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		user_id INT REFERENCES users (user_id),
		product_id INT REFERENCES products (product_id),
		quantity INT NOT NULL CHECK (quantity > 0),
		order_date DATE)`,

	`CREATE INDEX IF NOT EXISTS idx_users_city ON users (city_id)`,

	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id)`,
}

// EnsureSchema idempotently creates the workload tables and indexes.
// A failure here is fatal to startup; the workload cannot run without schema.
func (d *Driver) EnsureSchema(ctx context.Context) error {
	conn, err := d.db.Acquire(ctx)
	if err != nil {
		return errors.Join(workload.ErrSchemaCreationFailed, err)
	}
	defer d.releaseConn(conn)

	for _, statement := range schemaStatements {
		start := time.Now()
		_, execErr := conn.Exec(ctx, statement)
		d.logQueryWithDuration(statement, logActionSchema, time.Since(start))

		if execErr != nil {
			return errors.Join(workload.ErrSchemaCreationFailed, execErr)
		}
	}

	return nil
}
