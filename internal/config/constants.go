package config

const (
	DefaultDatabasePath = "./everbound.db"
)
