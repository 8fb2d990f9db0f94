package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/sellergrid/catsync/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createItemTable(db)
	if err != nil {
		return nil, err
	}
	err = createPriceRecordTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createItemTable creates a PostgreSQL table for the Item struct
func createItemTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id SERIAL PRIMARY KEY,
			item_id TEXT NOT NULL UNIQUE,
			external_id TEXT NOT NULL UNIQUE,
			name TEXT,
			category TEXT,
			tradable BOOLEAN,
			marketable BOOLEAN,
			commodity BOOLEAN,
			icon_url TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		log.Printf("Error creating items table: %v", err)
	}
	return err
}

// createPriceRecordTable creates a PostgreSQL table for the PriceRecord struct
func createPriceRecordTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS price_records (
			id SERIAL PRIMARY KEY,
			price_record_id TEXT NOT NULL UNIQUE,
			item_id TEXT NOT NULL REFERENCES items(item_id),
			currency TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			recorded_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating price_records table: %v", err)
	}
	return err
}
