package backend

import (
	"fmt"

	"coppia/internal/amqp"
	"coppia/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		Topology: amqp.Topology{
			Exchange:      appConfig.AMQPExchange,
			EvaluateQueue: appConfig.AMQPEvaluateQueue,
			NotifyQueue:   appConfig.AMQPNotifyQueue,
		},
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		GoogleReportSheet:   appConfig.GoogleReportSheetName,
		credentials: sheetsCredentials{
			file: appConfig.GoogleServiceAccountFile,
			json: appConfig.GoogleServiceAccountJSON,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.AMQPURL != "" && (c.Topology.Exchange == "" || c.Topology.EvaluateQueue == "" || c.Topology.NotifyQueue == "") {
		return fmt.Errorf("AMQP exchange and queue names are required when AMQP is enabled")
	}
	if c.GoogleSpreadsheetID != "" && (c.GoogleSheetName == "" || c.GoogleReportSheet == "") {
		return fmt.Errorf("Google Sheet names are required when the sheets export is enabled")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
