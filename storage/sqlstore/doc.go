// Package sqlstore implements the storage ports on gorm. The schema is owned
// by internal/migration; AutoMigrate is only used by tests.
package sqlstore
